// Package errors provides structured error types for the CTF library.
//
// Errors carry a Phase (where in processing the failure occurred) and a
// Kind (what category of failure it is), plus an optional path into the
// type graph, a human-readable detail, and a wrapped cause. Two errors
// match under errors.Is when their Phase and Kind agree, so callers can
// test for "any duplicate-name during create" without string matching.
//
// The container never logs and never aborts: every failure is returned to
// the immediate caller as one of these values and is deterministic given
// the same inputs.
package errors
