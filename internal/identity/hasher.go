// Package identity turns network addresses into irreversible, stable
// identifiers and derives the pseudonyms shown for anonymous visitors.
//
// All hashes are HMAC-SHA256 keyed with a server-held pepper and rendered as
// 64 hex characters. There is no random salt: the same address and pepper
// always produce the same hash, which is what lets a ban on a hash match
// every later submission from that address.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"strings"
)

// unknownAddress is hashed in place of an empty or unparsable address
const unknownAddress = "unknown"

// HashIdentity hashes the exact address
func HashIdentity(address, pepper string) string {
	addr := canonicalAddress(address)
	if addr == "" {
		addr = unknownAddress
	}
	return sum(pepper, addr)
}

// HashNetwork hashes the /24 containing an IPv4 address. Anything that is
// not IPv4 is hashed as given, so the function never fails.
func HashNetwork(address, pepper string) string {
	if network, ok := NetworkOf(address); ok {
		return sum(pepper, network)
	}
	raw := strings.TrimSpace(address)
	if raw == "" {
		raw = unknownAddress
	}
	return sum(pepper, raw)
}

// NetworkOf zeroes the last octet of an IPv4 address: 203.0.113.7 → 203.0.113.0
func NetworkOf(address string) (string, bool) {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return "", false
	}
	v4 := ip.To4()
	if v4 == nil {
		return "", false
	}
	network := make(net.IP, net.IPv4len)
	copy(network, v4)
	network[3] = 0
	return network.String(), true
}

// MaskAddress hides the host part of an address for display to moderators
func MaskAddress(address string) string {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return unknownAddress
	}
	if v4 := ip.To4(); v4 != nil {
		parts := strings.Split(v4.String(), ".")
		return strings.Join(parts[:3], ".") + ".xxx"
	}
	// Keep the /48 of IPv6 addresses
	full := ip.To16()
	prefix := net.IP(append(full[:6:6], make([]byte, 10)...))
	return prefix.String() + "/48"
}

// canonicalAddress renders parsable addresses in canonical form so that
// ::ffff:1.2.3.4 and 1.2.3.4 hash alike
func canonicalAddress(address string) string {
	trimmed := strings.TrimSpace(address)
	if ip := net.ParseIP(trimmed); ip != nil {
		return ip.String()
	}
	return trimmed
}

func sum(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Hasher binds the hashing functions to a pepper loaded at startup
type Hasher struct {
	pepper string
}

// NewHasher creates a Hasher for the given pepper
func NewHasher(pepper string) *Hasher {
	return &Hasher{pepper: pepper}
}

// HashIdentity hashes the exact address
func (h *Hasher) HashIdentity(address string) string {
	return HashIdentity(address, h.pepper)
}

// HashNetwork hashes the address's /24
func (h *Hasher) HashNetwork(address string) string {
	return HashNetwork(address, h.pepper)
}

// HashEditKey hashes a plaintext edit key for storage
func (h *Hasher) HashEditKey(key string) string {
	return sum(h.pepper, "edit-key:"+key)
}

// MatchEditKey compares a presented key against a stored hash in constant time
func (h *Hasher) MatchEditKey(key, storedHash string) bool {
	if key == "" || storedHash == "" {
		return false
	}
	computed := h.HashEditKey(key)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// IsHash reports whether s looks like a hash produced by this package
func IsHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
