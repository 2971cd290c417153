package clients

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
)

// CreateClientRequest is the payload accepted by POST /api/clients.
type CreateClientRequest struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=1000"`
}

// UpdateClientRequest is a partial update; absent fields are left untouched.
type UpdateClientRequest struct {
	Name               *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Email              *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string  `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address            *string  `json:"address,omitempty" validate:"omitempty,max=1000"`
	AveragePaymentDays *int     `json:"averagePaymentDays,omitempty" validate:"omitempty,gte=0,lte=3650"`
	PaymentReliability *float64 `json:"paymentReliability,omitempty" validate:"omitempty,gte=0,lte=1"`
	IsActive           *bool    `json:"isActive,omitempty"`
}

// View is the JSON shape of a client.
type View struct {
	ID                 uuid.UUID   `json:"id"`
	UserID             uuid.UUID   `json:"userId"`
	Name               string      `json:"name"`
	Email              *string     `json:"email"`
	Phone              *string     `json:"phone"`
	Address            *string     `json:"address"`
	AveragePaymentDays int         `json:"averagePaymentDays"`
	PaymentReliability float64     `json:"paymentReliability"`
	TotalInvoiced      json.Number `json:"totalInvoiced"`
	TotalPaid          json.Number `json:"totalPaid"`
	InvoiceCount       int         `json:"invoiceCount"`
	IsActive           bool        `json:"isActive"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// NewView renders a client for JSON output.
func NewView(c Client) View {
	return View{
		ID:                 c.ID,
		UserID:             c.UserID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		Address:            c.Address,
		AveragePaymentDays: c.AveragePaymentDays,
		PaymentReliability: c.PaymentReliability,
		TotalInvoiced:      httpx.Amount(c.TotalInvoiced),
		TotalPaid:          httpx.Amount(c.TotalPaid),
		InvoiceCount:       c.InvoiceCount,
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
