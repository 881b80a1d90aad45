// Package tracking implements open/click/delivery event ingestion.
//
// Outbound messages embed HMAC-signed tokens in pixel and redirect URLs.
// The HTTP surface verifies tokens, converts hits into delivery events, and
// queues them; the consumer applies events to delivery log rows with
// set-once semantics.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Codec signs and verifies tracking tokens. The token payload is the
// delivery log ID, plus the destination URL for clicks, joined with "|".
type Codec struct {
	secret []byte
}

// NewCodec creates a token codec with the given signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

func (c *Codec) sign(data string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Codec) verify(data, sig string) bool {
	expected := c.sign(data)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (c *Codec) encode(parts ...string) (data, sig string) {
	payload := strings.Join(parts, "|")
	data = base64.URLEncoding.EncodeToString([]byte(payload))
	return data, c.sign(data)
}

func (c *Codec) decode(data, sig string, wantParts int) ([]string, bool) {
	if !c.verify(data, sig) {
		return nil, false
	}
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, false
	}
	parts := strings.SplitN(string(raw), "|", wantParts)
	if len(parts) < wantParts {
		return nil, false
	}
	return parts, true
}

// OpenURL builds the signed tracking pixel URL for a delivery log entry.
func (c *Codec) OpenURL(baseURL, logID string) string {
	data, sig := c.encode(logID)
	return fmt.Sprintf("%s/track/open/%s/%s", strings.TrimRight(baseURL, "/"), data, sig)
}

// ClickURL builds the signed redirect URL wrapping target.
func (c *Codec) ClickURL(baseURL, logID, target string) string {
	data, sig := c.encode(logID, target)
	return fmt.Sprintf("%s/track/click/%s/%s", strings.TrimRight(baseURL, "/"), data, sig)
}

// DecodeOpen extracts the log ID from an open token.
func (c *Codec) DecodeOpen(data, sig string) (logID string, ok bool) {
	parts, ok := c.decode(data, sig, 1)
	if !ok {
		return "", false
	}
	return parts[0], true
}

// DecodeClick extracts the log ID and destination URL from a click token.
func (c *Codec) DecodeClick(data, sig string) (logID, target string, ok bool) {
	parts, ok := c.decode(data, sig, 2)
	if !ok {
		return "", "", false
	}
	return parts[0], parts[1], true
}
