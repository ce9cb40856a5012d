package models

import (
	"time"
)

// Ban blocks submissions from an address hash, a network hash, or both
type Ban struct {
	ID        string     `json:"id" db:"id"`
	IPHash    string     `json:"ip_hash,omitempty" db:"ip_hash"`   // empty = not set
	NetHash   string     `json:"net_hash,omitempty" db:"net_hash"` // empty = not set
	Reason    string     `json:"reason" db:"reason"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"` // nil = permanent
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the ban applies at the given instant
func (b *Ban) IsActive(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}

// BanScope selects which hashes of a comment a ban covers
type BanScope string

const (
	BanScopeIP   BanScope = "ip"
	BanScopeNet  BanScope = "net"
	BanScopeBoth BanScope = "both"
)

// ValidBanScopes defines the accepted ban scopes
var ValidBanScopes = map[BanScope]bool{
	BanScopeIP:   true,
	BanScopeNet:  true,
	BanScopeBoth: true,
}
