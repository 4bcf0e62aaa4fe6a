// Package errors provides error handling for the concept store.
//
// This package re-exports github.com/cockroachdb/errors so that every layer
// wraps with stack traces and can attach user-facing hints:
//
//	if err := store.Delete(ctx, id); err != nil {
//	    return errors.Wrapf(err, "remove concept %s", id)
//	}
//
//	return errors.WithHint(types.ErrNotInitialized, "run `concepts init <name>` first")
//
// Sentinel errors for the storage contract live in pkg/types; compare with
// errors.Is.
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
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)
