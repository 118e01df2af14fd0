package model

import (
	"strings"
	"time"
)

// Address is a wallet address, the durable player identity. Addresses are
// compared case-insensitively everywhere, so they are lower-cased at every
// entry point via NormalizeAddress.
type Address string

// NormalizeAddress canonicalizes a raw wallet address string
func NormalizeAddress(raw string) Address {
	return Address(strings.ToLower(strings.TrimSpace(raw)))
}

// Default presence values for a freshly created player
const (
	DefaultX      = 600.0
	DefaultY      = 500.0
	DefaultAvatar = "https://i.ibb.co/ykXzG7c/image.png"
)

// Player is the live presence record for one address inside one room.
// A player exists only while its address is a member of a room; at most one
// player record exists per address across all rooms.
type Player struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Address  Address  `json:"address"`
	Avatar   string   `json:"avatar"`
	Label    string   `json:"label"`
	Messages []string `json:"messages"`
}

// NewPlayer creates a player at the default spawn position, overlaying any
// remembered profile values
func NewPlayer(address Address, profile *Profile) *Player {
	p := &Player{
		X:        DefaultX,
		Y:        DefaultY,
		Address:  address,
		Avatar:   DefaultAvatar,
		Label:    "",
		Messages: []string{},
	}
	if profile != nil {
		if profile.Label != "" {
			p.Label = profile.Label
		}
		if profile.Avatar != "" {
			p.Avatar = profile.Avatar
		}
	}
	return p
}

// Profile is the durable per-address record of the last label and avatar a
// player used, independent of any room. It seeds new player records on join.
type Profile struct {
	Address   Address   `json:"address"`
	Label     string    `json:"label,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
