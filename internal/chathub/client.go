package chathub

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/models"
)

// Client is the interface for any realtime connection. It abstracts the
// underlying transport, allowing the hub to manage connections uniformly.
type Client interface {
	// GetConnID returns an identifier unique to this connection. One account
	// may hold several connections at once.
	GetConnID() string
	// GetIdentity returns the authenticated caller behind the connection.
	GetIdentity() auth.Identity
	// GetAuthor returns the display name stamped on messages this connection
	// sends.
	GetAuthor() string

	// GetSendChannel returns the channel the hub delivers room events on.
	// The hub never blocks on it; a full channel gets the client dropped.
	GetSendChannel() chan<- models.RoomEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down. The hub calls it exactly once, after
	// the client has been removed from every room.
	Close()
}
