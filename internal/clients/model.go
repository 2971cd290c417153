package clients

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default payment behaviour assumed for a client until the predictor learns otherwise.
const (
	DefaultAveragePaymentDays = 30
	DefaultPaymentReliability = 0.5
)

// Client is a customer the user invoices. The derived statistics are maintained by
// the invoice module and by the external predictor.
type Client struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	Email              *string
	Phone              *string
	Address            *string
	AveragePaymentDays int
	PaymentReliability float64
	TotalInvoiced      decimal.Decimal
	TotalPaid          decimal.Decimal
	InvoiceCount       int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
