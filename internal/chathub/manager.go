// Package chathub is the realtime room broker. Connections join rooms keyed by
// complaint id; a message sent to a room is persisted on the complaint thread
// and then delivered to every connection currently in the room.
package chathub

import (
	"context"
	"hash/fnv"
	"sync"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/models"

	"github.com/rs/zerolog"
)

const roomLockStripes = 64

// ComplaintService is the part of the complaint service the hub needs.
type ComplaintService interface {
	CheckAccess(ctx context.Context, op auth.Operation, id string, caller auth.Identity) error
	AppendMessage(ctx context.Context, id string, caller auth.Identity, author, text string) (*models.Message, error)
}

// Bus fans room events out across server instances. storage.RoomBus is the
// Redis implementation.
type Bus interface {
	Publish(ctx context.Context, evt models.RoomEvent) error
	Subscribe(ctx context.Context) (<-chan models.RoomEvent, func() error, error)
}

// ManagerService owns the room registry. It is safe for concurrent use.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[string]Client
	// rooms maps complaint id to the connections in it.
	rooms map[string]map[string]Client
	// joined is the reverse index used to clean up on disconnect.
	joined map[string]map[string]struct{}

	// roomLocks serialise persist-then-deliver per room.
	roomLocks [roomLockStripes]sync.Mutex

	Complaints ComplaintService
	Bus        Bus

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewManagerService creates the hub. bus may be nil, in which case events are
// delivered to local connections only.
func NewManagerService(complaints ComplaintService, bus Bus, log zerolog.Logger) *ManagerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ManagerService{
		clients:    make(map[string]Client),
		rooms:      make(map[string]map[string]Client),
		joined:     make(map[string]map[string]struct{}),
		Complaints: complaints,
		Bus:        bus,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With().Str("component", "chathub").Logger(),
	}
}

// Context is cancelled when the hub stops. Connections derive the context of
// each event they handle from it.
func (m *ManagerService) Context() context.Context { return m.ctx }

// Register adds a connection to the hub.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	m.clients[c.GetConnID()] = c
	total := len(m.clients)
	m.mu.Unlock()

	m.log.Debug().Str("conn_id", c.GetConnID()).Int("connections", total).Msg("client registered")
}

// Unregister removes the connection from every room and closes it. Calling
// it for a connection that is already gone does nothing.
func (m *ManagerService) Unregister(c Client) {
	id := c.GetConnID()

	m.mu.Lock()
	registered, ok := m.clients[id]
	if !ok || registered != c {
		m.mu.Unlock()
		return
	}
	delete(m.clients, id)
	for complaintID := range m.joined[id] {
		m.removeMemberLocked(complaintID, id)
	}
	delete(m.joined, id)
	c.Close()
	m.mu.Unlock()

	m.log.Debug().Str("conn_id", id).Msg("client unregistered")
}

func (m *ManagerService) removeMemberLocked(complaintID, connID string) {
	members := m.rooms[complaintID]
	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, complaintID)
	}
}

// Join adds the connection to the room of complaintID after checking the
// caller may read that complaint. Joining twice is harmless.
func (m *ManagerService) Join(ctx context.Context, c Client, complaintID string) error {
	if err := m.Complaints.CheckAccess(ctx, auth.OpJoinRoom, complaintID, c.GetIdentity()); err != nil {
		return err
	}

	id := c.GetConnID()
	m.mu.Lock()
	if _, ok := m.clients[id]; !ok {
		m.mu.Unlock()
		return apperr.Unauthenticated("connection is closed")
	}
	members, ok := m.rooms[complaintID]
	if !ok {
		members = make(map[string]Client)
		m.rooms[complaintID] = members
	}
	members[id] = c
	rooms, ok := m.joined[id]
	if !ok {
		rooms = make(map[string]struct{})
		m.joined[id] = rooms
	}
	rooms[complaintID] = struct{}{}
	m.mu.Unlock()

	m.sendTo(c, models.RoomEvent{Event: models.EventJoined, ComplaintID: complaintID})
	return nil
}

// Leave removes the connection from the room. It is a no-op when the
// connection is not a member.
func (m *ManagerService) Leave(c Client, complaintID string) {
	id := c.GetConnID()
	m.mu.Lock()
	_, member := m.joined[id][complaintID]
	if member {
		delete(m.joined[id], complaintID)
		m.removeMemberLocked(complaintID, id)
	}
	m.mu.Unlock()

	if member {
		m.sendTo(c, models.RoomEvent{Event: models.EventLeft, ComplaintID: complaintID})
	}
}

// SendMessage persists text on the complaint thread and then delivers it to
// every member of the room, the sender included when joined. Persistence
// failures are returned and nothing is delivered.
func (m *ManagerService) SendMessage(ctx context.Context, c Client, complaintID, text string) error {
	lock := m.roomLock(complaintID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := m.Complaints.AppendMessage(ctx, complaintID, c.GetIdentity(), c.GetAuthor(), text)
	if err != nil {
		return err
	}

	evt := models.RoomEvent{Event: models.EventMessage, ComplaintID: complaintID, Message: msg}
	if m.Bus == nil {
		m.deliver(evt)
		return nil
	}
	if err := m.Bus.Publish(ctx, evt); err != nil {
		// Already persisted; reach at least the local members.
		m.log.Error().Err(err).Str("complaint_id", complaintID).Msg("publish failed, delivering locally")
		m.deliver(evt)
	}
	return nil
}

// HandleEvent dispatches one inbound frame. Errors are reported to the sender
// only.
func (m *ManagerService) HandleEvent(ctx context.Context, c Client, evt models.ClientEvent) {
	if evt.ComplaintID == "" {
		m.sendError(c, evt.ComplaintID, apperr.Validation("complaintId is required"))
		return
	}

	var err error
	switch evt.Event {
	case models.EventJoinComplaint:
		err = m.Join(ctx, c, evt.ComplaintID)
	case models.EventLeaveComplaint:
		m.Leave(c, evt.ComplaintID)
	case models.EventSendMessage:
		err = m.SendMessage(ctx, c, evt.ComplaintID, evt.Text)
	default:
		err = apperr.Validation("unknown event " + evt.Event)
	}
	if err != nil {
		m.sendError(c, evt.ComplaintID, err)
	}
}

// Members returns the number of connections in the room.
func (m *ManagerService) Members(complaintID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[complaintID])
}

// Connections returns the number of registered connections.
func (m *ManagerService) Connections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *ManagerService) roomLock(complaintID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(complaintID))
	return &m.roomLocks[h.Sum32()%roomLockStripes]
}

func (m *ManagerService) sendError(c Client, complaintID string, err error) {
	if apperr.Is(err, apperr.KindStore) {
		m.log.Error().Err(err).Str("conn_id", c.GetConnID()).Str("complaint_id", complaintID).Msg("realtime event failed")
	}
	m.sendTo(c, models.RoomEvent{Event: models.EventError, ComplaintID: complaintID, Error: apperr.PublicMessage(err)})
}

// sendTo delivers evt to one connection if it is still registered.
func (m *ManagerService) sendTo(c Client, evt models.RoomEvent) {
	m.mu.RLock()
	registered, ok := m.clients[c.GetConnID()]
	slow := false
	if ok && registered == c {
		select {
		case c.GetSendChannel() <- evt:
		default:
			slow = true
		}
	}
	m.mu.RUnlock()

	if slow {
		m.drop(c)
	}
}

// deliver sends evt to every local member of its room. Members whose buffer
// is full are dropped.
func (m *ManagerService) deliver(evt models.RoomEvent) {
	var slow []Client

	m.mu.RLock()
	for _, c := range m.rooms[evt.ComplaintID] {
		select {
		case c.GetSendChannel() <- evt:
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		m.drop(c)
	}
}

func (m *ManagerService) drop(c Client) {
	m.log.Warn().Str("conn_id", c.GetConnID()).Msg("dropping slow client")
	m.Unregister(c)
}

// closeAll disconnects every connection.
func (m *ManagerService) closeAll() {
	m.mu.RLock()
	clients := make([]Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		m.Unregister(c)
	}
}
