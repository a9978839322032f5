// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package moerr collects the error classes the join hash table subsystem
// can raise. Every exported constructor builds a *Error with a Class so
// callers can branch on category without string matching.
package moerr

import (
	"errors"
	"fmt"
)

type Class uint8

const (
	// ClassInternal marks an invariant the core itself is responsible for
	// upholding. Seeing one means a bug in this module, not bad input.
	ClassInternal Class = iota
	// ClassResourceExhausted marks a budget the caller configured (memory,
	// radix fan-out, block capacity) that build/probe ran past.
	ClassResourceExhausted
	// ClassInvalidInput marks a precondition the caller violated (wrong
	// join-condition arity, mismatched radix bits across local tables).
	ClassInvalidInput
	// ClassBenignRace marks a condition that is expected under the
	// concurrency model and is not actually an error; constructors in this
	// class exist so call sites can log without alarm.
	ClassBenignRace
)

func (c Class) String() string {
	switch c {
	case ClassInternal:
		return "internal"
	case ClassResourceExhausted:
		return "resource_exhausted"
	case ClassInvalidInput:
		return "invalid_input"
	case ClassBenignRace:
		return "benign_race"
	default:
		return "unknown"
	}
}

type Error struct {
	class Class
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.class, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.class, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Class() Class { return e.class }

func newf(class Class, format string, args ...any) *Error {
	return &Error{class: class, msg: fmt.Sprintf(format, args...)}
}

// NewInternalError reports a violated invariant of this module's own
// bookkeeping (row layout arithmetic, bucket-chain threading, swizzle
// state). Never expected to surface from correct caller usage.
func NewInternalError(format string, args ...any) *Error {
	return newf(ClassInternal, format, args...)
}

// NewInvariantViolation is an alias kept distinct from NewInternalError so
// call sites can name the specific invariant that broke (see spec's
// swizzle-state and radix-bit-negotiation invariants).
func NewInvariantViolation(format string, args ...any) *Error {
	return newf(ClassInternal, format, args...)
}

// NewResourceExhausted reports a configured budget the build or partition
// path ran past (buffer pool capacity, max radix bits, block capacity).
func NewResourceExhausted(format string, args ...any) *Error {
	return newf(ClassResourceExhausted, format, args...)
}

// NewInvalidInput reports a precondition the caller violated: malformed
// join condition set, column count mismatch, options out of range.
func NewInvalidInput(format string, args ...any) *Error {
	return newf(ClassInvalidInput, format, args...)
}

// NewBenignRace documents, rather than reports, a data race the
// concurrency model explicitly tolerates (concurrent monotonic
// match-flag writes). Returned only from diagnostic helpers, never from
// the hot path.
func NewBenignRace(format string, args ...any) *Error {
	return newf(ClassBenignRace, format, args...)
}

// Is lets callers use errors.Is(err, moerr.ClassInternal) by class.
func Is(err error, class Class) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.class == class
	}
	return false
}
