// Package complaint provides the core logic for handling complaints: creation,
// role-scoped reads, status updates, assignment and the message thread.
package complaint

import (
	"context"
	"errors"
	"strings"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/validate"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Notifier is told about complaint events staff should hear about.
// Implementations must not block.
type Notifier interface {
	ComplaintCreated(c *models.Complaint)
	StatusChanged(c *models.Complaint, previous string)
}

type CreateInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	Tags        []string `json:"tags" validate:"max=10,dive,required,max=32"`
}

// ListFilter narrows listings. Plain users are additionally restricted to
// their own complaints.
type ListFilter struct {
	Status string
	Tag    string
	Limit  int
	Offset int
}

// Service handles the business logic for complaints.
type Service struct {
	Storage  storage.Storage
	Notifier Notifier
	log      zerolog.Logger
}

// NewService creates a new complaint service. n may be nil.
func NewService(s storage.Storage, n Notifier, log zerolog.Logger) *Service {
	return &Service{Storage: s, Notifier: n, log: log.With().Str("component", "complaints").Logger()}
}

// storeErr maps storage errors into the application taxonomy.
func (s *Service) storeErr(err error, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("complaint not found")
	}
	s.log.Error().Err(err).Str("op", op).Msg("storage failure")
	return apperr.Store(err)
}

func checkID(id string) error {
	if uuid.Validate(id) != nil {
		return apperr.NotFound("complaint not found")
	}
	return nil
}

// Create stores a new complaint owned by the caller with the default status
// and an empty thread.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (*models.Complaint, error) {
	if err := auth.Authorize(auth.OpCreateComplaint, caller); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	for i := range in.Tags {
		in.Tags[i] = strings.ToLower(strings.TrimSpace(in.Tags[i]))
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	c := &models.Complaint{
		Title:       in.Title,
		Description: in.Description,
		Status:      config.DefaultStatus,
		OwnerID:     caller.AccountID,
		Tags:        pq.StringArray(in.Tags),
		Messages:    []models.Message{},
	}
	if c.Tags == nil {
		c.Tags = pq.StringArray{}
	}

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, s.storeErr(err, "create")
	}

	s.log.Info().Str("complaint_id", c.ID).Str("owner_id", c.OwnerID).Msg("complaint created")
	if s.Notifier != nil {
		s.Notifier.ComplaintCreated(c)
	}
	return c, nil
}

// ListForCaller returns complaints visible to the caller, newest modified
// first. Plain users only ever see their own.
func (s *Service) ListForCaller(ctx context.Context, caller auth.Identity, f ListFilter) ([]models.Complaint, error) {
	if err := auth.Authorize(auth.OpListComplaints, caller); err != nil {
		return nil, err
	}

	filter := storage.ComplaintFilter{
		Status: strings.TrimSpace(f.Status),
		Tag:    strings.ToLower(strings.TrimSpace(f.Tag)),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	if auth.ScopedToOwner(auth.OpListComplaints, caller) {
		filter.OwnerID = caller.AccountID
	}

	complaints, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, s.storeErr(err, "list")
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	return complaints, nil
}

// GetByID returns one complaint with its thread.
func (s *Service) GetByID(ctx context.Context, id string, caller auth.Identity) (*models.Complaint, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, "get")
	}
	if err := auth.AuthorizeOwned(auth.OpGetComplaint, caller, c.OwnerID); err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []models.Message{}
	}
	return c, nil
}

// CheckAccess verifies that the caller may use op on complaint id without
// loading the thread.
func (s *Service) CheckAccess(ctx context.Context, op auth.Operation, id string, caller auth.Identity) error {
	if err := auth.Authorize(op, caller); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	owner, err := s.Storage.GetComplaintOwner(ctx, id)
	if err != nil {
		return s.storeErr(err, "owner")
	}
	return auth.AuthorizeOwned(op, caller, owner)
}

// UpdateStatus overwrites the status. No transition graph is enforced.
func (s *Service) UpdateStatus(ctx context.Context, id, status string, caller auth.Identity) (*models.Complaint, error) {
	if err := auth.Authorize(auth.OpUpdateStatus, caller); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, apperr.Validation("status is required")
	}
	if len(status) > config.MaxStatusLength {
		return nil, apperr.Validation("status is too long")
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	c, previous, err := s.Storage.UpdateComplaintStatus(ctx, id, status, caller.AccountID)
	if err != nil {
		return nil, s.storeErr(err, "update_status")
	}

	s.log.Info().
		Str("complaint_id", id).
		Str("actor_id", caller.AccountID).
		Str("from", previous).
		Str("to", status).
		Msg("complaint status changed")
	if s.Notifier != nil && previous != status {
		s.Notifier.StatusChanged(c, previous)
	}
	return c, nil
}

// Assign sets the agent responsible for a complaint. Admin only; the target
// must be an agent account.
func (s *Service) Assign(ctx context.Context, id, agentID string, caller auth.Identity) (*models.Complaint, error) {
	if err := auth.Authorize(auth.OpAssignComplaint, caller); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	if uuid.Validate(agentID) != nil {
		return nil, apperr.Validation("agentId must be a valid id")
	}

	agent, err := s.Storage.GetAccountByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Validation("agent does not exist")
		}
		return nil, s.storeErr(err, "assign")
	}
	if agent.Role != models.RoleAgent {
		return nil, apperr.Validation("assignee must have the agent role")
	}

	c, err := s.Storage.AssignComplaint(ctx, id, agentID, caller.AccountID)
	if err != nil {
		return nil, s.storeErr(err, "assign")
	}
	return c, nil
}

// Messages returns the thread of a complaint.
func (s *Service) Messages(ctx context.Context, id string, caller auth.Identity) ([]models.Message, error) {
	if err := s.CheckAccess(ctx, auth.OpListMessages, id, caller); err != nil {
		return nil, err
	}
	messages, err := s.Storage.ListMessages(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, "messages")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// AppendMessage persists a message on the complaint thread. The store appends
// atomically, so concurrent senders never lose each other's messages.
func (s *Service) AppendMessage(ctx context.Context, id string, caller auth.Identity, author, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text is required")
	}
	if len(text) > config.MaxMessageLength {
		return nil, apperr.Validation("text is too long")
	}
	if err := s.CheckAccess(ctx, auth.OpSendMessage, id, caller); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ComplaintID: id,
		AuthorID:    caller.AccountID,
		Author:      author,
		Text:        text,
	}
	if err := s.Storage.AppendMessage(ctx, msg); err != nil {
		return nil, s.storeErr(err, "append_message")
	}
	return msg, nil
}

// Transactions returns the audit log of complaint mutations, newest first.
// Admin only. An empty complaintID lists every complaint.
func (s *Service) Transactions(ctx context.Context, caller auth.Identity, complaintID string, limit, offset int) ([]models.Transaction, error) {
	if err := auth.Authorize(auth.OpListTransactions, caller); err != nil {
		return nil, err
	}
	if complaintID != "" {
		if err := checkID(complaintID); err != nil {
			return nil, err
		}
	}
	txs, err := s.Storage.ListTransactions(ctx, storage.TransactionFilter{ComplaintID: complaintID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, s.storeErr(err, "transactions")
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}
