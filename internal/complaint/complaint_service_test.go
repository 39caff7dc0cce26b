package complaint_test

import (
	"context"
	"errors"
	"testing"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/storage/storagetest"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier records notifications.
type MockNotifier struct {
	mock.Mock
}

func (n *MockNotifier) ComplaintCreated(c *models.Complaint) { n.Called(c) }
func (n *MockNotifier) StatusChanged(c *models.Complaint, previous string) {
	n.Called(c, previous)
}

var (
	ownerID   = uuid.NewString()
	strangeID = uuid.NewString()
	agentID   = uuid.NewString()
	adminID   = uuid.NewString()

	owner    = auth.Identity{AccountID: ownerID, Role: models.RoleUser}
	stranger = auth.Identity{AccountID: strangeID, Role: models.RoleUser}
	agent    = auth.Identity{AccountID: agentID, Role: models.RoleAgent}
	admin    = auth.Identity{AccountID: adminID, Role: models.RoleAdmin}
)

func newTestService() (*complaint.Service, *storagetest.MockStorage, *MockNotifier) {
	storageMock := new(storagetest.MockStorage)
	notifier := new(MockNotifier)
	return complaint.NewService(storageMock, notifier, zerolog.Nop()), storageMock, notifier
}

func TestCreate_DefaultsAndRoundTrip(t *testing.T) {
	svc, storageMock, notifier := newTestService()
	ctx := context.Background()

	var stored *models.Complaint
	storageMock.On("CreateComplaint", ctx, mock.AnythingOfType("*models.Complaint")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.Complaint)
			stored.ID = uuid.NewString()
		}).
		Return(nil).Once()
	notifier.On("ComplaintCreated", mock.AnythingOfType("*models.Complaint")).Once()

	created, err := svc.Create(ctx, owner, complaint.CreateInput{
		Title:       "Water Leakage",
		Description: "Pipe burst in block B",
		Tags:        []string{" Plumbing "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Water Leakage", created.Title)
	assert.Equal(t, "Pipe burst in block B", created.Description)
	assert.Equal(t, config.DefaultStatus, created.Status)
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, ownerID, created.OwnerID)
	assert.Empty(t, created.Messages)
	assert.Equal(t, []string{"plumbing"}, []string(created.Tags))

	storageMock.On("GetComplaint", ctx, stored.ID).Return(stored, nil).Once()
	fetched, err := svc.GetByID(ctx, stored.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "Water Leakage", fetched.Title)
	assert.Equal(t, "Pipe burst in block B", fetched.Description)
	assert.Equal(t, "Pending", fetched.Status)

	notifier.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	svc, storageMock, _ := newTestService()

	tests := []struct {
		name string
		in   complaint.CreateInput
	}{
		{"missing title", complaint.CreateInput{Description: "d"}},
		{"blank title", complaint.CreateInput{Title: "   ", Description: "d"}},
		{"missing description", complaint.CreateInput{Title: "t"}},
		{"empty tag", complaint.CreateInput{Title: "t", Description: "d", Tags: []string{" "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
	storageMock.AssertNotCalled(t, "CreateComplaint", mock.Anything, mock.Anything)
}

func TestListForCaller_UserSeesOnlyOwn(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()

	storageMock.On("ListComplaints", ctx, storage.ComplaintFilter{OwnerID: ownerID}).
		Return([]models.Complaint{{ID: "c1", OwnerID: ownerID}}, nil).Once()

	list, err := svc.ListForCaller(ctx, owner, complaint.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ownerID, list[0].OwnerID)
	storageMock.AssertExpectations(t)
}

func TestListForCaller_UserCannotDropOwnerScope(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()

	storageMock.On("ListComplaints", ctx, storage.ComplaintFilter{OwnerID: ownerID, Status: "Resolved", Tag: "noise"}).
		Return([]models.Complaint{}, nil).Once()

	_, err := svc.ListForCaller(ctx, owner, complaint.ListFilter{Status: "Resolved", Tag: "Noise"})
	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestListForCaller_StaffSeeAll(t *testing.T) {
	for _, caller := range []auth.Identity{agent, admin} {
		t.Run(string(caller.Role), func(t *testing.T) {
			svc, storageMock, _ := newTestService()
			ctx := context.Background()

			storageMock.On("ListComplaints", ctx, storage.ComplaintFilter{Status: "Pending", Limit: 10}).
				Return([]models.Complaint{{OwnerID: ownerID}, {OwnerID: strangeID}}, nil).Once()

			list, err := svc.ListForCaller(ctx, caller, complaint.ListFilter{Status: "Pending", Limit: 10})
			require.NoError(t, err)
			assert.Len(t, list, 2)
			storageMock.AssertExpectations(t)
		})
	}
}

func TestListForCaller_StoreError(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	storageMock.On("ListComplaints", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := svc.ListForCaller(ctx, agent, complaint.ListFilter{})
	assert.True(t, apperr.Is(err, apperr.KindStore))
}

func TestGetByID_Access(t *testing.T) {
	id := uuid.NewString()
	record := &models.Complaint{ID: id, OwnerID: ownerID, Status: "Pending"}

	tests := []struct {
		name    string
		caller  auth.Identity
		wantErr apperr.Kind
		ok      bool
	}{
		{"owner", owner, 0, true},
		{"other user", stranger, apperr.KindForbidden, false},
		{"agent", agent, 0, true},
		{"admin", admin, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, storageMock, _ := newTestService()
			ctx := context.Background()
			storageMock.On("GetComplaint", ctx, id).Return(record, nil)

			got, err := svc.GetByID(ctx, id, tt.caller)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, id, got.ID)
				return
			}
			assert.True(t, apperr.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	missing := uuid.NewString()
	storageMock.On("GetComplaint", ctx, missing).Return(nil, storage.ErrNotFound)

	_, err := svc.GetByID(ctx, missing, agent)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.GetByID(ctx, "not-a-uuid", agent)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	storageMock.AssertNotCalled(t, "GetComplaint", ctx, "not-a-uuid")
}

func TestUpdateStatus_RoleGate(t *testing.T) {
	id := uuid.NewString()

	t.Run("user forbidden even as owner", func(t *testing.T) {
		svc, storageMock, _ := newTestService()
		_, err := svc.UpdateStatus(context.Background(), id, "Resolved", owner)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		storageMock.AssertNotCalled(t, "UpdateComplaintStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	for _, caller := range []auth.Identity{agent, admin} {
		t.Run(string(caller.Role)+" allowed", func(t *testing.T) {
			svc, storageMock, notifier := newTestService()
			ctx := context.Background()
			updated := &models.Complaint{ID: id, OwnerID: ownerID, Status: "Resolved"}
			storageMock.On("UpdateComplaintStatus", ctx, id, "Resolved", caller.AccountID).
				Return(updated, "Pending", nil).Once()
			notifier.On("StatusChanged", updated, "Pending").Once()

			got, err := svc.UpdateStatus(ctx, id, " Resolved ", caller)
			require.NoError(t, err)
			assert.Equal(t, "Resolved", got.Status)
			assert.Equal(t, ownerID, got.OwnerID)
			notifier.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus_NoTransitionGraph(t *testing.T) {
	svc, storageMock, notifier := newTestService()
	ctx := context.Background()
	id := uuid.NewString()

	reopened := &models.Complaint{ID: id, Status: "Pending"}
	storageMock.On("UpdateComplaintStatus", ctx, id, "Pending", agentID).Return(reopened, "Resolved", nil)
	notifier.On("StatusChanged", reopened, "Resolved").Once()

	got, err := svc.UpdateStatus(ctx, id, "Pending", agent)
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.Status)
}

func TestUpdateStatus_Errors(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	missing := uuid.NewString()
	storageMock.On("UpdateComplaintStatus", ctx, missing, "Resolved", agentID).Return(nil, "", storage.ErrNotFound)

	_, err := svc.UpdateStatus(ctx, missing, "Resolved", agent)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.UpdateStatus(ctx, missing, "  ", agent)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAssign(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	id := uuid.NewString()
	userAccount := uuid.NewString()

	storageMock.On("GetAccountByID", ctx, agentID).Return(&models.Account{ID: agentID, Role: models.RoleAgent}, nil)
	storageMock.On("GetAccountByID", ctx, userAccount).Return(&models.Account{ID: userAccount, Role: models.RoleUser}, nil)
	storageMock.On("AssignComplaint", ctx, id, agentID, adminID).
		Return(&models.Complaint{ID: id, AssignedAgentID: &agentID}, nil).Once()

	_, err := svc.Assign(ctx, id, agentID, agent)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "agents cannot assign")

	_, err = svc.Assign(ctx, id, userAccount, admin)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err := svc.Assign(ctx, id, agentID, admin)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedAgentID)
	assert.Equal(t, agentID, *got.AssignedAgentID)
}

func TestAppendMessage(t *testing.T) {
	id := uuid.NewString()

	t.Run("owner appends", func(t *testing.T) {
		svc, storageMock, _ := newTestService()
		ctx := context.Background()
		storageMock.On("GetComplaintOwner", ctx, id).Return(ownerID, nil)
		storageMock.On("AppendMessage", ctx, mock.MatchedBy(func(m *models.Message) bool {
			return m.ComplaintID == id && m.AuthorID == ownerID && m.Author == "ann@example.com" && m.Text == "hello"
		})).Return(nil).Once()

		msg, err := svc.AppendMessage(ctx, id, owner, "ann@example.com", " hello ")
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)
		storageMock.AssertExpectations(t)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		svc, storageMock, _ := newTestService()
		ctx := context.Background()
		storageMock.On("GetComplaintOwner", ctx, id).Return(ownerID, nil)

		_, err := svc.AppendMessage(ctx, id, stranger, "eve@example.com", "hi")
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		storageMock.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
	})

	t.Run("missing complaint", func(t *testing.T) {
		svc, storageMock, _ := newTestService()
		ctx := context.Background()
		storageMock.On("GetComplaintOwner", ctx, id).Return("", storage.ErrNotFound)

		_, err := svc.AppendMessage(ctx, id, agent, "agent@example.com", "hi")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("empty text", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.AppendMessage(context.Background(), id, agent, "agent@example.com", "  ")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}

func TestMessages(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	id := uuid.NewString()
	storageMock.On("GetComplaintOwner", ctx, id).Return(ownerID, nil)
	storageMock.On("ListMessages", ctx, id).Return(nil, nil)

	messages, err := svc.Messages(ctx, id, owner)
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)

	_, err = svc.Messages(ctx, id, stranger)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestTransactions_AdminOnly(t *testing.T) {
	svc, storageMock, _ := newTestService()
	ctx := context.Background()
	id := uuid.NewString()
	storageMock.On("ListTransactions", ctx, storage.TransactionFilter{ComplaintID: id, Limit: 5}).
		Return([]models.Transaction{{ComplaintID: id, Kind: models.TxCreated}}, nil).Once()

	_, err := svc.Transactions(ctx, agent, id, 5, 0)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	txs, err := svc.Transactions(ctx, admin, id, 5, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxCreated, txs[0].Kind)
	storageMock.AssertExpectations(t)
}
