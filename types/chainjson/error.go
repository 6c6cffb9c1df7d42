// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainjson holds the types used on the JSON-RPC surface of the
// node.
package chainjson

import "fmt"

// RPCErrorCode represents an error code to be used as a part of an RPCError
// which is in turn used in a JSON-RPC Response object.
//
// A specific type is used to help ensure the wrong errors aren't used.
type RPCErrorCode int

// RPCError represents an error that is used as a part of a JSON-RPC Response
// object.
type RPCError struct {
	Code    RPCErrorCode `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Guarantee RPCError satisfies the builtin error interface.
var _, _ error = RPCError{}, (*RPCError)(nil)

// Error returns a string describing the RPC error.  This satisfies the
// builtin error interface.
func (e RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewRPCError constructs and returns a new JSON-RPC error that is suitable
// for use in a JSON-RPC Response object.
func NewRPCError(code RPCErrorCode, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// Standard JSON-RPC error codes.
const (
	ErrRPCInvalidRequest RPCErrorCode = -32600
	ErrRPCMethodNotFound RPCErrorCode = -32601
	ErrRPCInvalidParams  RPCErrorCode = -32602
	ErrRPCInternal       RPCErrorCode = -32603
	ErrRPCParse          RPCErrorCode = -32700
)

// General application error codes, matching the bitcoind numbering the
// ecosystem expects.
const (
	ErrRPCMisc             RPCErrorCode = -1
	ErrRPCOutOfRange       RPCErrorCode = -1
	ErrRPCInvalidAddress   RPCErrorCode = -5
	ErrRPCBlockNotFound    RPCErrorCode = -5
	ErrRPCInvalidParameter RPCErrorCode = -8
	ErrRPCDifficulty       RPCErrorCode = -10
	ErrRPCVerify           RPCErrorCode = -25
)
