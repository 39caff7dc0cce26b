package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ComplaintFilter narrows ListComplaints. Empty fields do not filter.
type ComplaintFilter struct {
	OwnerID string
	Status  string
	Tag     string
	Limit   int
	Offset  int
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	ComplaintID string
	Limit       int
	Offset      int
}

type Storage interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	UpdateAccountRole(ctx context.Context, id string, role models.Role) (*models.Account, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	GetComplaintOwner(ctx context.Context, id string) (string, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id, status, actorID string) (updated *models.Complaint, previous string, err error)
	AssignComplaint(ctx context.Context, id, agentID, actorID string) (*models.Complaint, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, complaintID string) ([]models.Message, error)

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > config.MaxPageSize {
		limit = config.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// CreateAccount inserts a new account. A taken email yields ErrDuplicate.
func (s *Service) CreateAccount(ctx context.Context, account *models.Account) error {
	return translate(s.DB.WithContext(ctx).Create(account).Error)
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *Service) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.DB.WithContext(ctx).Order("created_at asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Service) UpdateAccountRole(ctx context.Context, id string, role models.Role) (*models.Account, error) {
	res := s.DB.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetAccountByID(ctx, id)
}

// CreateComplaint inserts the complaint and its "created" audit record.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(complaint).Error; err != nil {
			return err
		}
		return tx.Create(&models.Transaction{
			ComplaintID: complaint.ID,
			ActorID:     complaint.OwnerID,
			Kind:        models.TxCreated,
			Detail:      complaint.Status,
		}).Error
	})
	return translate(err)
}

// GetComplaint loads a complaint with its thread in timestamp order.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("id = ?", id).
		First(&complaint).Error
	if err != nil {
		return nil, translate(err)
	}
	return &complaint, nil
}

// GetComplaintOwner returns only the owner reference, for access checks on
// hot paths that do not need the thread.
func (s *Service) GetComplaintOwner(ctx context.Context, id string) (string, error) {
	var owners []string
	if err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("owner_id", &owners).Error; err != nil {
		return "", err
	}
	if len(owners) == 0 {
		return "", ErrNotFound
	}
	return owners[0], nil
}

// ListComplaints returns complaints newest-modified first, without threads.
func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	limit, offset := page(filter.Limit, filter.Offset)

	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Tag != "" {
		q = q.Where("? = ANY(tags)", filter.Tag)
	}

	var complaints []models.Complaint
	if err := q.Order("updated_at desc").Limit(limit).Offset(offset).Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

// UpdateComplaintStatus overwrites the status under a row lock and records the
// transition. The previous status is returned for notifications.
func (s *Service) UpdateComplaintStatus(ctx context.Context, id, status, actorID string) (*models.Complaint, string, error) {
	var (
		current  models.Complaint
		previous string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		previous = current.Status

		now := time.Now()
		if err := tx.Model(&current).Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		current.Status = status
		current.UpdatedAt = now

		return tx.Create(&models.Transaction{
			ComplaintID: id,
			ActorID:     actorID,
			Kind:        models.TxStatusChanged,
			Detail:      fmt.Sprintf("%s -> %s", previous, status),
		}).Error
	})
	if err != nil {
		return nil, "", translate(err)
	}
	return &current, previous, nil
}

// AssignComplaint sets the assigned agent and records it.
func (s *Service) AssignComplaint(ctx context.Context, id, agentID, actorID string) (*models.Complaint, error) {
	var current models.Complaint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&current).Updates(map[string]any{
			"assigned_agent_id": agentID,
			"updated_at":        now,
		}).Error; err != nil {
			return err
		}
		current.AssignedAgentID = &agentID
		current.UpdatedAt = now
		return tx.Create(&models.Transaction{
			ComplaintID: id,
			ActorID:     actorID,
			Kind:        models.TxAssigned,
			Detail:      agentID,
		}).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &current, nil
}

// AppendMessage inserts msg as its own row and bumps the complaint's
// modification time. The UPDATE doubles as the existence check.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Complaint{}).Where("id = ?", msg.ComplaintID).Update("updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Create(&models.Transaction{
			ComplaintID: msg.ComplaintID,
			ActorID:     msg.AuthorID,
			Kind:        models.TxMessageAdded,
			Detail:      msg.ID,
		}).Error
	})
	return translate(err)
}

// ListMessages returns the thread of a complaint in timestamp order.
func (s *Service) ListMessages(ctx context.Context, complaintID string) ([]models.Message, error) {
	var messages []models.Message
	if err := s.DB.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order("created_at asc").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	limit, offset := page(filter.Limit, filter.Offset)

	q := s.DB.WithContext(ctx).Model(&models.Transaction{})
	if filter.ComplaintID != "" {
		q = q.Where("complaint_id = ?", filter.ComplaintID)
	}

	var txs []models.Transaction
	if err := q.Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
