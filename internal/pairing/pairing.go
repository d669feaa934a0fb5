// Package pairing bootstraps a gossip connection between two replicas
// by exchanging a peer id and listen address, encoded as a scannable
// QR code. It is reduced from the teacher's signed invite flow: access
// control is out of scope for this module, so there is no signature
// or public key to verify, only the address a new replica needs to
// dial into the gossip protocol.
package pairing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

// CodePrefix is the URL scheme embedded in every pairing code.
const CodePrefix = "deltacrdt://"

// DefaultExpiry is how long a pairing code remains valid.
const DefaultExpiry = time.Hour

// Code is the data exchanged to bootstrap a gossip connection.
type Code struct {
	PeerID    string `json:"p"`
	Address   string `json:"a"`
	CreatedAt int64  `json:"c"`
	ExpiresAt int64  `json:"e"`
}

// New builds a pairing code for peerID reachable at address, valid for expiry.
func New(peerID, address string, expiry time.Duration) *Code {
	now := time.Now()
	return &Code{
		PeerID:    peerID,
		Address:   address,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(expiry).Unix(),
	}
}

// Encode serializes the code to a compact, URL-safe string.
func (c *Code) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("pairing: encode: %w", err)
	}
	return CodePrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// Parse decodes and validates a pairing code string.
func Parse(s string) (*Code, error) {
	if !strings.HasPrefix(s, CodePrefix) {
		return nil, fmt.Errorf("pairing: missing %q prefix", CodePrefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, CodePrefix))
	if err != nil {
		return nil, fmt.Errorf("pairing: invalid encoding: %w", err)
	}

	var c Code
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("pairing: invalid code data: %w", err)
	}
	if c.IsExpired() {
		return nil, fmt.Errorf("pairing: code expired")
	}
	return &c, nil
}

// IsExpired reports whether the code is past its expiry time.
func (c *Code) IsExpired() bool {
	return time.Now().Unix() > c.ExpiresAt
}

// ToQR renders the code as a PNG-encoded QR image.
func (c *Code) ToQR() ([]byte, error) {
	encoded, err := c.Encode()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(encoded, qrcode.Medium, 256)
}

// ToQRString renders the code as ASCII art for terminal display.
func (c *Code) ToQRString() (string, error) {
	encoded, err := c.Encode()
	if err != nil {
		return "", err
	}
	qr, err := qrcode.New(encoded, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("pairing: render QR: %w", err)
	}
	return qr.ToSmallString(false), nil
}
