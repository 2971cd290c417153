package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]Client
	txCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: make(map[uuid.UUID]Client)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txCalls++
	return fn(ctx, m)
}

func (m *memoryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("get client: %w", shared.ErrNotFound)
	}
	return &c, nil
}

func (m *memoryRepo) List(ctx context.Context, userID uuid.UUID) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Client
	for _, c := range m.clients {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, client Client) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID] = client
	return &client, nil
}

func (m *memoryRepo) Update(ctx context.Context, userID, id uuid.UUID, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			c.Name = v.(string)
		case "average_payment_days":
			c.AveragePaymentDays = v.(int)
		case "is_active":
			c.IsActive = v.(bool)
		}
	}
	m.clients[id] = c
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return shared.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(newMemoryRepo())
	userID := uuid.New()

	c, err := svc.Create(context.Background(), userID, CreateClientRequest{Name: "  Acme  "})
	require.NoError(t, err)
	require.Equal(t, "Acme", c.Name)
	require.Equal(t, DefaultAveragePaymentDays, c.AveragePaymentDays)
	require.Equal(t, DefaultPaymentReliability, c.PaymentReliability)
	require.True(t, c.TotalInvoiced.IsZero())
	require.True(t, c.IsActive)

	_, err = svc.Create(context.Background(), userID, CreateClientRequest{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateIsScopedToOwner(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	owner := uuid.New()
	c, err := svc.Create(context.Background(), owner, CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)

	days := 52
	updated, err := svc.Update(context.Background(), owner, c.ID, UpdateClientRequest{AveragePaymentDays: &days})
	require.NoError(t, err)
	require.Equal(t, 52, updated.AveragePaymentDays)
	require.Equal(t, 1, repo.txCalls)

	_, err = svc.Update(context.Background(), uuid.New(), c.ID, UpdateClientRequest{AveragePaymentDays: &days})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func withUser(userID uuid.UUID, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
	})
}

func TestHandlerCreateListDelete(t *testing.T) {
	userID := uuid.New()
	router := chi.NewRouter()
	router.Route("/api/clients", NewHandler(nil, NewService(newMemoryRepo())).MountRoutes)
	h := withUser(userID, router)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(`{"name":"Acme","email":"billing@acme.test"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		Success bool `json:"success"`
		Data    struct {
			ID            string          `json:"id"`
			TotalInvoiced json.RawMessage `json:"totalInvoiced"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.Equal(t, "0.00", string(created.Data.TotalInvoiced))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"count":1`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/clients/"+created.Data.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/clients/"+created.Data.ID, nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerRejectsInvalidInput(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/api/clients", NewHandler(nil, NewService(newMemoryRepo())).MountRoutes)
	h := withUser(uuid.New(), router)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(`{"email":"not-an-email"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/clients/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
