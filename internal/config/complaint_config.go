package config

import "time"

const (
	// Statuses
	StatusPending  = "Pending"
	StatusResolved = "Resolved"
	DefaultStatus  = StatusPending

	// Limits
	MaxStatusLength  = 32
	MaxMessageLength = 2000
	MaxPasswordBytes = 72

	// Listing
	DefaultPageSize = 50
	MaxPageSize     = 200

	// Realtime
	RoomChannelPrefix = "complaint:"
	ClientSendBuffer  = 256
	WriteWait         = 10 * time.Second
	PongWait          = 60 * time.Second
	MaxFrameSize      = 4096
)
