// Package account is the user directory: registration, login and the admin
// operations on accounts.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/validate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegisterInput is the payload of a registration. Role is optional.
type RegisterInput struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service handles the business logic for accounts.
type Service struct {
	Storage storage.Storage
	Tokens  *auth.Tokens
	log     zerolog.Logger
}

// NewService creates a new account service.
func NewService(s storage.Storage, tokens *auth.Tokens, log zerolog.Logger) *Service {
	return &Service{Storage: s, Tokens: tokens, log: log.With().Str("component", "accounts").Logger()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Plain callers may only create "user"
// accounts; staff roles need an authenticated admin caller.
func (s *Service) Register(ctx context.Context, in RegisterInput, caller *auth.Identity) (*models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	// bcrypt counts bytes, not runes.
	if len(in.Password) > config.MaxPasswordBytes {
		return nil, apperr.Validation(fmt.Sprintf("password must be at most %d bytes", config.MaxPasswordBytes))
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be one of user, agent, admin")
	}
	if role != models.RoleUser {
		if caller == nil {
			return nil, apperr.Forbidden("only admins may create staff accounts")
		}
		if err := auth.Authorize(auth.OpRegisterStaff, *caller); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Store(err)
	}

	account := &models.Account{Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.Storage.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Validation("email already registered")
		}
		return nil, apperr.Store(err)
	}

	s.log.Info().Str("account_id", account.ID).Str("role", string(role)).Msg("account registered")
	return account, nil
}

// Login checks credentials and issues a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, *models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return "", nil, err
	}

	account, err := s.Storage.GetAccountByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, apperr.Unauthenticated("invalid credentials")
		}
		return "", nil, apperr.Store(err)
	}
	if !auth.CheckPassword(account.PasswordHash, in.Password) {
		return "", nil, apperr.Unauthenticated("invalid credentials")
	}

	token, err := s.Tokens.Issue(auth.Identity{AccountID: account.ID, Role: account.Role})
	if err != nil {
		return "", nil, apperr.Store(err)
	}
	return token, account, nil
}

// Get returns the caller's own account.
func (s *Service) Get(ctx context.Context, caller auth.Identity) (*models.Account, error) {
	account, err := s.Storage.GetAccountByID(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.Unauthenticated("account no longer exists")
		}
		return nil, apperr.Store(err)
	}
	return account, nil
}

// List returns every account. Admin only.
func (s *Service) List(ctx context.Context, caller auth.Identity) ([]models.Account, error) {
	if err := auth.Authorize(auth.OpListAccounts, caller); err != nil {
		return nil, err
	}
	accounts, err := s.Storage.ListAccounts(ctx)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return accounts, nil
}

// SetRole changes the role of account id. Admin only.
func (s *Service) SetRole(ctx context.Context, caller auth.Identity, id string, role models.Role) (*models.Account, error) {
	if err := auth.Authorize(auth.OpSetRole, caller); err != nil {
		return nil, err
	}
	return s.setRole(ctx, id, role)
}

// SetRoleByEmail is the trusted variant used by the admin CLI.
func (s *Service) SetRoleByEmail(ctx context.Context, email string, role models.Role) (*models.Account, error) {
	account, err := s.Storage.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, apperr.Store(err)
	}
	return s.setRole(ctx, account.ID, role)
}

func (s *Service) setRole(ctx context.Context, id string, role models.Role) (*models.Account, error) {
	if !role.Valid() {
		return nil, apperr.Validation("role must be one of user, agent, admin")
	}
	if uuid.Validate(id) != nil {
		return nil, apperr.NotFound("account not found")
	}
	account, err := s.Storage.UpdateAccountRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, apperr.Store(err)
	}
	s.log.Info().Str("account_id", id).Str("role", string(role)).Msg("account role changed")
	return account, nil
}
