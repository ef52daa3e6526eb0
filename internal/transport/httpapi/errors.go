// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/xmidt-org/wakelink/xhttp"
)

// errorKind names follow spec §7's structured error kinds.
const (
	KindAuthRequired        = "AUTH_REQUIRED"
	KindInvalidAPIToken     = "INVALID_API_TOKEN"
	KindDeviceNotFound      = "DEVICE_NOT_FOUND"
	KindInvalidPacket       = "INVALID_PACKET"
	KindUnsupportedVersion  = "UNSUPPORTED_VERSION"
	KindLimitExceeded       = "LIMIT_EXCEEDED"
)

// writeError writes a JSON {"detail": ...} body, the shape every
// non-2xx response in §7 uses. The status/message pair is carried
// through xhttp.Error, the same carrier xhttp.WriteErrorf builds on;
// only the final JSON envelope differs, since this API reports
// {"detail": ...} rather than webpa-common's {code, message}.
func writeError(w http.ResponseWriter, status int, detail string) {
	httpErr := &xhttp.Error{Code: status, Text: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.StatusCode())
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": httpErr.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
