package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Service implements client management for a single user scope.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new active client with default payment behaviour.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateClientRequest) (*Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", shared.ErrValidation)
	}
	client, err := s.repo.Create(ctx, Client{
		ID:                 uuid.New(),
		UserID:             userID,
		Name:               name,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		AveragePaymentDays: DefaultAveragePaymentDays,
		PaymentReliability: DefaultPaymentReliability,
		IsActive:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// Get returns one client owned by the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Client, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns the user's clients, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Client, error) {
	return s.repo.List(ctx, userID)
}

// Update applies a partial update and returns the stored client.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req UpdateClientRequest) (*Client, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be blank: %w", shared.ErrValidation)
		}
		updates["name"] = name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.AveragePaymentDays != nil {
		updates["average_payment_days"] = *req.AveragePaymentDays
	}
	if req.PaymentReliability != nil {
		updates["payment_reliability"] = *req.PaymentReliability
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	var updated *Client
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, userID, id, updates); err != nil {
				return err
			}
		}
		var err error
		updated, err = repo.Get(ctx, userID, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return updated, nil
}

// Delete removes a client. Its invoices keep their history with the client reference cleared.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
