// Package hasher is the single boundary where raw network identifiers (IP
// addresses, device fingerprints) are reduced to salted one-way hashes. Raw
// values must never reach the persistence layer from any other code path.
package hasher

import (
	"crypto/hmac"
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

type Hasher struct {
	key []byte
}

func New(key string) *Hasher {
	return &Hasher{key: []byte(key)}
}

func (h *Hasher) hash(prefix, val string) string {
	if val == "" {
		return ""
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(prefix))
	mac.Write([]byte(val))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashIP returns the salted hash of a raw IP address.
func (h *Hasher) HashIP(ip string) string {
	return h.hash("ip/", ip)
}

// HashDevice returns the salted hash of a raw device fingerprint.
func (h *Hasher) HashDevice(fingerprint string) string {
	return h.hash("device/", fingerprint)
}
