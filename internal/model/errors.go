package model

import "errors"

// Common errors used across the application
var (
	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")

	// Room errors
	ErrRoomNotFound = errors.New("room not found")
)
