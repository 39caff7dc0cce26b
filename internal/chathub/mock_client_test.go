package chathub_test

import (
	"context"
	"sync"

	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	connID      string
	identity    auth.Identity
	author      string
	RecvChannel chan models.RoomEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(connID string, identity auth.Identity) *MockClient {
	return newMockClientWithBuffer(connID, identity, 16)
}

func newMockClientWithBuffer(connID string, identity auth.Identity, size int) *MockClient {
	return &MockClient{
		connID:      connID,
		identity:    identity,
		author:      connID + "@example.com",
		RecvChannel: make(chan models.RoomEvent, size),
	}
}

func (c *MockClient) GetConnID() string                       { return c.connID }
func (c *MockClient) GetIdentity() auth.Identity              { return c.identity }
func (c *MockClient) GetAuthor() string                       { return c.author }
func (c *MockClient) GetSendChannel() chan<- models.RoomEvent { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	close(c.RecvChannel)
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns the events queued for the client without blocking.
func (c *MockClient) drain() []models.RoomEvent {
	var out []models.RoomEvent
	for {
		select {
		case evt, ok := <-c.RecvChannel:
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}

// messages returns the texts of the queued message events.
func (c *MockClient) messages() []string {
	var out []string
	for _, evt := range c.drain() {
		if evt.Event == models.EventMessage && evt.Message != nil {
			out = append(out, evt.Message.Text)
		}
	}
	return out
}

// MockComplaints mocks chathub.ComplaintService.
type MockComplaints struct {
	mock.Mock
}

func (m *MockComplaints) CheckAccess(ctx context.Context, op auth.Operation, id string, caller auth.Identity) error {
	args := m.Called(ctx, op, id, caller)
	return args.Error(0)
}

func (m *MockComplaints) AppendMessage(ctx context.Context, id string, caller auth.Identity, author, text string) (*models.Message, error) {
	args := m.Called(ctx, id, caller, author, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}
