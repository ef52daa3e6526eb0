// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the on-wire shapes exchanged between the relay
// and its peers: the outer envelope forwarded verbatim between client
// and device, and the tagged frames the relay itself originates on a
// push-stream connection.
package wire

import "errors"

// ProtocolVersion is the only outer-envelope version this relay accepts.
const ProtocolVersion = "1.0"

// Direction is which way a queued envelope is travelling.
type Direction string

const (
	ToDevice Direction = "to_device"
	ToClient Direction = "to_client"
)

// MessageType mirrors Direction at the storage layer: a command always
// travels to_device, a response always travels to_client.
type MessageType string

const (
	Command  MessageType = "command"
	Response MessageType = "response"
)

// TypeForDirection returns the message_type invariant-paired with dir.
func TypeForDirection(dir Direction) MessageType {
	if dir == ToClient {
		return Response
	}
	return Command
}

var (
	// ErrMissingField is returned by Envelope.Validate when a required
	// outer-envelope field is absent.
	ErrMissingField = errors.New("missing required envelope field")

	// ErrUnsupportedVersion is returned when version != ProtocolVersion.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// Envelope is the outer, on-wire packet. The relay forwards these
// fields verbatim and never inspects Payload or Signature.
type Envelope struct {
	DeviceID       string `json:"device_id"`
	Payload        string `json:"payload"`
	Signature      string `json:"signature"`
	Version        string `json:"version"`
	RequestCounter *int64 `json:"request_counter,omitempty"`
}

// Validate checks the required-fields-present and version invariants
// from spec §4.2. It does not check that the device exists or is
// owned by anyone; that is the caller's job, since it requires a
// store lookup.
func (e Envelope) Validate() error {
	if e.DeviceID == "" || e.Payload == "" || e.Signature == "" || e.Version == "" {
		return ErrMissingField
	}

	if e.Version != ProtocolVersion {
		return ErrUnsupportedVersion
	}

	return nil
}

// QueuedMessage is an Envelope as read back out of the durable store,
// decorated with the bookkeeping fields a pull response reports.
type QueuedMessage struct {
	DeviceID    string      `json:"device_id"`
	MessageType MessageType `json:"message_type"`
	Packet      string      `json:"packet"`
	Payload     string      `json:"payload"`
	Signature   string      `json:"signature"`
	Direction   Direction   `json:"direction"`
	Timestamp   string      `json:"timestamp"`
}
