package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens, now: time.Now}
}

// Register creates an active account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		IsActive:     true,
	})
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: *user, Token: token, ExpiresAt: s.now().Add(s.tokens.TTL()).UTC()}, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Resolve maps a bearer token to its user id.
func (s *Service) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	return s.tokens.Resolve(ctx, token)
}

// Me returns the account behind the user id.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ActiveUsers lists accounts the background jobs should process.
func (s *Service) ActiveUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListActive(ctx)
}

// ActiveUserIDs lists the ids of active accounts.
func (s *Service) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	users, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
