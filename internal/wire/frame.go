package wire

import "encoding/json"

// ErrorKind enumerates the structured error kinds a push-stream peer
// can be told about, per spec §7.
type ErrorKind string

const (
	AuthRequired       ErrorKind = "AUTH_REQUIRED"
	InvalidToken       ErrorKind = "INVALID_TOKEN"
	InvalidAPIToken    ErrorKind = "INVALID_API_TOKEN"
	DeviceNotFound     ErrorKind = "DEVICE_NOT_FOUND"
	InvalidJSON        ErrorKind = "INVALID_JSON"
	InvalidPacket      ErrorKind = "INVALID_PACKET"
	UnsupportedVersion ErrorKind = "UNSUPPORTED_VERSION"
	Backpressure       ErrorKind = "BACKPRESSURE"
)

// AuthMessage is the in-band auth frame a client stream sends in lieu
// of a header-carried bearer token: {"type":"auth","token":"..."}.
type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// IsAuthMessage reports whether raw decodes as an in-band auth frame.
func IsAuthMessage(raw []byte) (AuthMessage, bool) {
	var m AuthMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return AuthMessage{}, false
	}

	return m, m.Type == "auth"
}

// WelcomeFrame is the first frame sent to a peer once its stream
// reaches the ACTIVE state.
type WelcomeFrame struct {
	Type            string `json:"type"`
	Status          string `json:"status"`
	DeviceID        string `json:"device_id,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	ProtocolVersion string `json:"protocol_version"`
	Message         string `json:"message,omitempty"`
}

// NewDeviceWelcome builds the welcome frame sent on a device stream.
func NewDeviceWelcome(deviceID string) WelcomeFrame {
	return WelcomeFrame{
		Type:            "welcome",
		Status:          "connected",
		DeviceID:        deviceID,
		ProtocolVersion: ProtocolVersion,
		Message:         "WebSocket connection established",
	}
}

// NewClientWelcome builds the welcome frame sent on a client stream.
func NewClientWelcome(clientID string) WelcomeFrame {
	return WelcomeFrame{
		Type:            "welcome",
		Status:          "connected",
		ClientID:        clientID,
		ProtocolVersion: ProtocolVersion,
		Message:         "Client WebSocket connection established",
	}
}

// ErrorFrame is the structured error frame sent to a push-stream peer.
type ErrorFrame struct {
	Status  string    `json:"status"`
	Error   ErrorKind `json:"error"`
	Message string    `json:"message,omitempty"`
}

// NewErrorFrame builds an ErrorFrame with the conventional status field.
func NewErrorFrame(kind ErrorKind, message string) ErrorFrame {
	return ErrorFrame{
		Status:  "error",
		Error:   kind,
		Message: message,
	}
}

// AckFrame is sent to a client stream after a command has been
// routed, indicating whether it was delivered immediately or queued.
type AckFrame struct {
	Status    string `json:"status"`
	DeviceID  string `json:"device_id"`
	Delivered bool   `json:"delivered"`
	Queued    bool   `json:"queued"`
	Message   string `json:"message,omitempty"`
}

// NewAckFrame builds the ACK frame for a client command.
func NewAckFrame(deviceID string, delivered bool) AckFrame {
	msg := "Device offline, queued"
	if delivered {
		msg = "Delivered to device"
	}

	return AckFrame{
		Status:    "success",
		DeviceID:  deviceID,
		Delivered: delivered,
		Queued:    !delivered,
		Message:   msg,
	}
}
