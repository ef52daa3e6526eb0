// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package authn resolves API bearer tokens to the owning user and
// enforces device ownership, per spec §4 component 2. It never
// mutates a User; device_token is never used here for relay auth —
// only api_token is.
package authn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/segmentio/ksuid"
	"github.com/xmidt-org/wakelink/internal/store"
)

// ErrNoToken is returned when neither Authorization nor X-API-Token
// carries a bearer credential.
var ErrNoToken = errors.New("authn: no API token presented")

// Resolver maps bearer tokens to users and devices to their owners.
type Resolver struct {
	store *store.Store
}

// NewResolver constructs a Resolver backed by the given entity store.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// TokenFromRequest extracts an API token from either the
// "Authorization: Bearer <token>" or "X-API-Token" header, matching
// routes/api.py's get_api_token.
func TokenFromRequest(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer "), true
	}
	if tok := r.Header.Get("X-API-Token"); tok != "" {
		return tok, true
	}
	return "", false
}

// Authenticate resolves a bearer token to its User.
func (r *Resolver) Authenticate(ctx context.Context, token string) (store.User, error) {
	if token == "" {
		return store.User{}, ErrNoToken
	}
	return r.store.UserByAPIToken(ctx, token)
}

// Owns verifies that deviceID belongs to user and returns it.
func (r *Resolver) Owns(ctx context.Context, user store.User, deviceID string) (store.Device, error) {
	return r.store.DeviceByIDForUser(ctx, deviceID, user.ID)
}

// GenerateToken produces an opaque, unguessable credential suitable
// for an api_token or device_token. ksuid gives a sortable, globally
// unique identifier; it is hashed through SHA-256 and hex-encoded
// before being handed out so the credential's entropy does not leak
// its own generation timestamp to anyone who receives it.
func GenerateToken() string {
	sum := sha256.Sum256([]byte(ksuid.New().String() + ksuid.New().String()))
	return hex.EncodeToString(sum[:])
}
