// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package database

import (
	"database/sql"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness rule.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrVersionConflict is returned when a project changed since it was read.
	ErrVersionConflict = errors.New("project was modified concurrently")

	// ErrNotAcceptingProposals is returned when a guarded proposal insert
	// finds the project past its tender phase.
	ErrNotAcceptingProposals = errors.New("project is not accepting proposals")
)

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isConstraintViolation(err):
		return errors.Join(ErrDuplicateKey, err)
	case isTransactionConflict(err):
		return errors.Join(ErrVersionConflict, err)
	}
	return err
}

func isConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") ||
		strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "violates primary key constraint")
}

// isTransactionConflict matches DuckDB's optimistic concurrency failures.
func isTransactionConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}
