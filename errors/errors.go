// Package errors provides error handling for sidlgen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for user-facing failure reports
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrPackageNotFound) {
//	    // handle missing package
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Mark associates err with a reference sentinel without discarding the
// original chain, so both classify under Is().
var Mark = crdb.Mark

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the compilation pipeline. Each fatal condition the
// resolver, closure walkers, stability checker, and orchestrator can hit
// wraps exactly one of these, so callers can classify failures with
// errors.Is() without string matching.
var (
	// ErrInvalidName indicates a malformed fully-qualified name string
	ErrInvalidName = New("invalid fully-qualified name")

	// ErrDuplicateRoot indicates a package root prefix that conflicts with
	// an already-registered mapping
	ErrDuplicateRoot = New("conflicting package root")

	// ErrRootNotFound indicates no package root mapping covers the package
	ErrRootNotFound = New("no package root for package")

	// ErrPackageNotFound indicates the package directory does not exist
	ErrPackageNotFound = New("package directory not found")

	// ErrParse indicates the frontend rejected a source unit
	ErrParse = New("parse failed")

	// ErrCyclicImport indicates a cycle in the package import graph
	ErrCyclicImport = New("cyclic import")

	// ErrUnknownTarget indicates the requested target is not registered
	ErrUnknownTarget = New("unknown target")

	// ErrValidation indicates the FQName shape is disallowed for the target
	ErrValidation = New("name not valid for target")

	// ErrStabilityMismatch indicates a frozen interface whose current hash
	// disagrees with the recorded digest
	ErrStabilityMismatch = New("frozen interface hash mismatch")

	// ErrIO indicates an artifact could not be written
	ErrIO = New("artifact not writable")
)

// IsNotFound reports whether err is a resolution miss of either kind.
func IsNotFound(err error) bool {
	return err != nil && IsAny(err, ErrRootNotFound, ErrPackageNotFound)
}

// NewInvalidNamef creates an invalid-name error with a formatted message.
func NewInvalidNamef(format string, args ...interface{}) error {
	return Wrap(ErrInvalidName, Newf(format, args...).Error())
}
