package models

// Inbound realtime events.
const (
	EventJoinComplaint  = "joinComplaint"
	EventLeaveComplaint = "leaveComplaint"
	EventSendMessage    = "sendMessage"
)

// Outbound realtime events.
const (
	EventJoined  = "joined"
	EventLeft    = "left"
	EventMessage = "message"
	EventError   = "error"
)

// ClientEvent is a frame received from a realtime connection.
type ClientEvent struct {
	Event       string `json:"event"`
	ComplaintID string `json:"complaintId"`
	Text        string `json:"text,omitempty"`
}

// RoomEvent is a frame delivered to realtime connections. It is also the
// payload published on the cross-instance channel.
type RoomEvent struct {
	Event       string   `json:"event"`
	ComplaintID string   `json:"complaintId"`
	Message     *Message `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
}
