// Package main provides the nornogm CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orneryd/nornogm/pkg/config"
	"github.com/orneryd/nornogm/pkg/nornogm"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nornogm",
		Short: "nornogm - Neo4j OGM maintenance tooling",
		Long: `nornogm inspects and maintains the schema of a Neo4j-compatible
server used through the nornogm object-graph mapper.

Connection settings come from NEO4J_URI / NEO4J_AUTH / NEO4J_DATABASE,
optionally overridden by a YAML config file.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("uri", "", "Bolt URI (overrides config)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nornogm v%s (%s)\n", version, commit)
		},
	})

	// Inspect command
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print labels, constraints and indexes from the server",
		RunE:  runInspect,
	}
	rootCmd.AddCommand(inspectCmd)

	// Clear command
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all data, optionally dropping constraints and indexes",
		RunE:  runClear,
	}
	clearCmd.Flags().Bool("constraints", false, "Also drop all constraints")
	clearCmd.Flags().Bool("indexes", false, "Also drop all indexes")
	clearCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings from the environment, or from the config
// file when one is given, with --uri overriding either.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.LoadFromEnv()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if uri, _ := cmd.Flags().GetString("uri"); uri != "" {
		cfg.Connection.URI = uri
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDB(cmd *cobra.Command) (*nornogm.DB, context.Context, context.CancelFunc, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := cfg.BuildLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	dialCtx, dialCancel := context.WithTimeout(ctx, 15*time.Second)
	defer dialCancel()
	gdb, err := nornogm.Open(dialCtx, cfg.Connection.URI, cfg.BoltOptions(logger),
		nornogm.WithDatabase(cfg.Connection.Database),
		nornogm.WithLogger(logger),
	)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return gdb, ctx, cancel, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	gdb, ctx, cancel, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer gdb.Close(context.Background())

	constraints, err := gdb.ListConstraints(ctx)
	if err != nil {
		return fmt.Errorf("list constraints: %w", err)
	}
	indexes, err := gdb.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	fmt.Printf("Constraints (%d):\n", len(constraints))
	for _, c := range constraints {
		fmt.Printf("  %-45s %-12s %v %v\n", c.Name, c.Type, c.LabelsOrTypes, c.Properties)
	}
	fmt.Printf("\nIndexes (%d):\n", len(indexes))
	for _, idx := range indexes {
		fmt.Printf("  %-45s %-12s %v %v\n", idx.Name, idx.Type, idx.LabelsOrTypes, idx.Properties)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	dropConstraints, _ := cmd.Flags().GetBool("constraints")
	dropIndexes, _ := cmd.Flags().GetBool("indexes")
	skipPrompt, _ := cmd.Flags().GetBool("yes")

	if !skipPrompt {
		fmt.Print("This deletes ALL data in the target database. Continue? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	gdb, ctx, cancel, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer gdb.Close(context.Background())

	if err := gdb.ClearDatabase(ctx, nornogm.ClearOptions{
		DropConstraints: dropConstraints,
		DropIndexes:     dropIndexes,
	}); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	fmt.Println("Database cleared.")
	return nil
}
