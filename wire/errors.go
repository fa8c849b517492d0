// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"
)

// ProtocolError describes a fault on the wire: a malformed frame, a
// failed handshake, an undecodable payload. The session layer treats
// any ProtocolError as grounds to drop the connection and reconnect;
// data-access callers never see one.
type ProtocolError struct {
	// Op is the operation that failed: "read", "write", "handshake",
	// "decode", "decompress".
	Op string

	// Detail describes the fault.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("wire: %s: %s", e.Op, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err is (or wraps) a *ProtocolError.
func IsProtocolError(err error) bool {
	var protocolError *ProtocolError
	return errors.As(err, &protocolError)
}
