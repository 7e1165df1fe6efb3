// File: handshake/handshake.go
// Package handshake implements the RFC 6455 HTTP upgrade on both sides.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The stream adapter assumes an already-handshaken connection; this
// package produces one. Upgrade validates a client's upgrade request
// and answers 101; ClientUpgrade sends the request and validates the
// server's answer. Both return the buffered reader they used, because
// frame bytes may already sit behind the handshake bytes.

package handshake

import (
	"bufio"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// WebSocketGUID is the fixed GUID of RFC 6455 §1.3.
	WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// MaxHandshakeHeadersSize caps the combined handshake header size.
	MaxHandshakeHeadersSize = 8192

	RequiredWebSocketVersion = "13"
)

var (
	ErrInvalidUpgradeHeaders = fmt.Errorf("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = fmt.Errorf("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = fmt.Errorf("unsupported WebSocket version; only '13' is supported")
	ErrBadAcceptKey          = fmt.Errorf("server returned a wrong Sec-WebSocket-Accept")
	ErrNotSwitching          = fmt.Errorf("server did not switch protocols")
)

// SecAccept computes the Sec-WebSocket-Accept value for a client key
// per RFC 6455 §1.3.
func SecAccept(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// ClientKey generates a fresh random Sec-WebSocket-Key.
func ClientKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("handshake key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// Upgrade reads a client upgrade request from rw, validates it, and
// writes the 101 response. On success it returns the request path and
// the buffered reader that must replace rw for subsequent frame reads.
func Upgrade(rw io.ReadWriter) (string, *bufio.Reader, error) {
	br := bufio.NewReader(rw)
	req, err := http.ReadRequest(br)
	if err != nil {
		return "", nil, fmt.Errorf("handshake read request: %w", err)
	}
	if err := validateRequest(req); err != nil {
		return "", nil, err
	}
	accept := SecAccept(req.Header.Get("Sec-WebSocket-Key"))
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
	if _, err := io.WriteString(rw, resp); err != nil {
		return "", nil, fmt.Errorf("handshake write response: %w", err)
	}
	return req.URL.Path, br, nil
}

// ClientUpgrade sends an upgrade request for path on host and
// validates the server's response, including the accept key echo.
// It returns the buffered reader that must replace rw for subsequent
// frame reads.
func ClientUpgrade(rw io.ReadWriter, host, path string) (*bufio.Reader, error) {
	key, err := ClientKey()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = "/"
	}
	req := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: " + RequiredWebSocketVersion + "\r\n\r\n"
	if _, err := io.WriteString(rw, req); err != nil {
		return nil, fmt.Errorf("handshake write request: %w", err)
	}
	br := bufio.NewReader(rw)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, fmt.Errorf("handshake read response: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, ErrNotSwitching
	}
	if resp.Header.Get("Sec-WebSocket-Accept") != SecAccept(key) {
		return nil, ErrBadAcceptKey
	}
	return br, nil
}

func validateRequest(req *http.Request) error {
	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
			if total > MaxHandshakeHeadersSize {
				return fmt.Errorf("handshake headers too large")
			}
		}
	}
	if !headerContainsToken(req.Header, "Connection", "Upgrade") ||
		!headerContainsToken(req.Header, "Upgrade", "websocket") {
		return ErrInvalidUpgradeHeaders
	}
	if req.Header.Get("Sec-WebSocket-Version") != RequiredWebSocketVersion {
		return ErrBadWebSocketVersion
	}
	if req.Header.Get("Sec-WebSocket-Key") == "" {
		return ErrMissingWebSocketKey
	}
	return nil
}

// headerContainsToken reports whether any comma-separated value of
// headerName equals token, case-insensitive.
func headerContainsToken(h http.Header, headerName, token string) bool {
	for _, v := range h[http.CanonicalHeaderKey(headerName)] {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
