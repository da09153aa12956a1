// Package dbtest provides a scripted Executor for package tests.
//
// The stub records every query it receives and pops pre-loaded results in
// FIFO order, so tests can assert on the exact Cypher text and parameters a
// component produced without a live server.
package dbtest

import (
	"context"

	"github.com/orneryd/nornogm/pkg/db"
)

// Call is one recorded Execute invocation.
type Call struct {
	Query  string
	Params map[string]any
}

// Stub is a scripted db.Executor. Zero value is usable: every query
// succeeds with an empty result.
type Stub struct {
	// Results are consumed one per Execute call; when exhausted, Execute
	// returns an empty result.
	Results []*db.Result

	// Err, when set, is returned by the next Execute call and then cleared.
	Err error

	// IdentityFunc defaults to elementId when empty.
	IdentityFunc db.IdentityFunc

	Calls []Call
}

var _ db.Executor = (*Stub)(nil)

func (s *Stub) Execute(_ context.Context, query string, params map[string]any) (*db.Result, error) {
	s.Calls = append(s.Calls, Call{Query: query, Params: params})
	if s.Err != nil {
		err := s.Err
		s.Err = nil
		return nil, err
	}
	if len(s.Results) == 0 {
		return &db.Result{}, nil
	}
	next := s.Results[0]
	s.Results = s.Results[1:]
	return next, nil
}

func (s *Stub) Identity() db.IdentityFunc {
	if s.IdentityFunc == "" {
		return db.FuncElementID
	}
	return s.IdentityFunc
}

// LastQuery returns the most recent query text, or "" when none ran.
func (s *Stub) LastQuery() string {
	if len(s.Calls) == 0 {
		return ""
	}
	return s.Calls[len(s.Calls)-1].Query
}

// LastParams returns the most recent parameter map, or nil when none ran.
func (s *Stub) LastParams() map[string]any {
	if len(s.Calls) == 0 {
		return nil
	}
	return s.Calls[len(s.Calls)-1].Params
}
