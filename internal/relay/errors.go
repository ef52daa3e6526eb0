// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import "errors"

// Sentinel errors naming the engine-level failure cases. No function in
// this module returns them: the engine's methods report outcomes as
// booleans, and the HTTP and stream surfaces report these cases with
// their own error kinds (httpapi's Kind* constants, wire.ErrorKind).
var (
	// ErrDeviceNotFound names a command that targets a device_id the
	// authenticated user does not own.
	ErrDeviceNotFound = errors.New("relay: device not found")
	// ErrInvalidPacket names an envelope that fails wire.Envelope.Validate.
	ErrInvalidPacket = errors.New("relay: invalid packet")
	// ErrUnsupportedVersion names an envelope whose version doesn't
	// match wire.ProtocolVersion.
	ErrUnsupportedVersion = errors.New("relay: unsupported protocol version")
	// ErrNoResponseTarget names a device response with no client
	// connection awaiting it; DeliverResponse reports this case by
	// returning false, and the device stream then persists the response
	// durably so a later pull picks it up.
	ErrNoResponseTarget = errors.New("relay: no client awaiting response")
)
