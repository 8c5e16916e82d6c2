package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
)

// InvoicePatch is a partial remote update. Nil fields are left untouched.
type InvoicePatch struct {
	AmountPaid *int64                       `json:"amount_paid,omitempty"`
	Status     *invoicedomain.InvoiceStatus `json:"status,omitempty"`
	DueDate    *time.Time                   `json:"due_date,omitempty"`
	UpdatedAt  *time.Time                   `json:"updated_at,omitempty"`
}

// RemoteStore is the authoritative backend as seen by the repository.
// Implementations carry no retry logic; the repository wraps calls in
// the retry policy.
type RemoteStore interface {
	FetchCustomers(ctx context.Context, userID string) ([]customerdomain.Customer, error)
	FetchInvoices(ctx context.Context, userID string) ([]invoicedomain.Invoice, error)
	FetchLogs(ctx context.Context, userID string) ([]interactiondomain.InteractionLog, error)

	UpsertCustomer(ctx context.Context, customer customerdomain.Customer) error
	InsertInvoice(ctx context.Context, invoice invoicedomain.Invoice) error
	UpdateInvoice(ctx context.Context, id snowflake.ID, patch InvoicePatch) error
	InsertLog(ctx context.Context, log interactiondomain.InteractionLog) error

	DeleteInvoice(ctx context.Context, id snowflake.ID) error
	DeleteInvoicesByCustomer(ctx context.Context, customerID snowflake.ID) error
	DeleteLogsByInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error
	DeleteCustomer(ctx context.Context, id snowflake.ID) error

	UploadScan(ctx context.Context, path string, data []byte) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
