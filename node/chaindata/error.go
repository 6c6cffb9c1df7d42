// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindata

import "fmt"

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorCode identifies a kind of consensus rule violation.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrInvalidPowAlgo indicates the header's algorithm id does not
	// resolve in the algorithm registry.
	ErrInvalidPowAlgo

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty rules or it is out of the valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficulty.
	ErrHighHash

	// ErrBadFakeHeader indicates a standalone block whose fake header is
	// missing, does not commit to the block, or that carries an aux pow
	// it must not have.
	ErrBadFakeHeader

	// ErrBadAuxPow indicates a merge-mined block whose aux pow is
	// missing, whose external parent header fails its own proof of work,
	// or whose merkle branch does not prove inclusion of the block's
	// commitment.
	ErrBadAuxPow

	// ErrAuxPowChainID indicates an aux pow tagged for a different
	// chain: a structurally sound proof replayed from elsewhere.
	ErrAuxPowChainID

	// ErrTimeTooOld indicates the time is either before the median time of
	// the last several blocks per the chain consensus rules.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the time is too far in the future as
	// compared to the current time.
	ErrTimeTooNew

	// ErrBadBlockHeight indicates the declared block height is not one
	// more than its parent's.
	ErrBadBlockHeight

	// ErrPreviousBlockUnknown indicates the previous block is not known.
	ErrPreviousBlockUnknown

	// ErrInvalidAncestorBlock indicates the block is an extension of a
	// block which is known to be invalid.
	ErrInvalidAncestorBlock
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrInvalidPowAlgo:       "ErrInvalidPowAlgo",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrHighHash:             "ErrHighHash",
	ErrBadFakeHeader:        "ErrBadFakeHeader",
	ErrBadAuxPow:            "ErrBadAuxPow",
	ErrAuxPowChainID:        "ErrAuxPowChainID",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrBadBlockHeight:       "ErrBadBlockHeight",
	ErrPreviousBlockUnknown: "ErrPreviousBlockUnknown",
	ErrInvalidAncestorBlock: "ErrInvalidAncestorBlock",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block failed due to one of the many validation rules.  The
// caller can use type assertions to determine if a failure was specifically
// due to a rule violation and access the ErrorCode field to ascertain the
// specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// NewRuleError creates a RuleError given a set of arguments.
func NewRuleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsRuleErrorCode reports whether err is a RuleError carrying the passed
// code.
func IsRuleErrorCode(err error, code ErrorCode) bool {
	ruleErr, ok := err.(RuleError)
	return ok && ruleErr.ErrorCode == code
}
