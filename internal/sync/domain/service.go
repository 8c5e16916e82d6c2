// Package domain defines the repository contract between the sync core
// and the presentation layer. Reads are live local streams; writes go
// remote-first and return normalized failures.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
)

// AddInvoiceRequest creates an invoice, and the customer with it when
// CustomerID is zero.
type AddInvoiceRequest struct {
	UserID       string
	CustomerID   snowflake.ID
	CustomerName string
	Phone        string
	Email        string
	IssueDate    time.Time
	DueDate      time.Time
	TotalAmount  int64
	ScanData     []byte
}

type AddPaymentRequest struct {
	UserID    string
	InvoiceID snowflake.ID
	Amount    int64
	Note      string
}

type AddNoteRequest struct {
	UserID    string
	InvoiceID snowflake.ID
	Note      string
}

type PostponeDueDateRequest struct {
	UserID     string
	InvoiceID  snowflake.ID
	NewDueDate time.Time
	Reason     string
}

// Service is the local-first repository. Observe methods never touch
// the network and never fail on connectivity; write methods mutate the
// remote store first and update the cache only on full remote success.
type Service interface {
	ObserveInvoices(ctx context.Context, userID string) <-chan []invoicedomain.Invoice
	ObserveCustomers(ctx context.Context, userID string) <-chan []customerdomain.Customer
	ObserveInvoiceDetails(ctx context.Context, invoiceID snowflake.ID) <-chan invoicedomain.InvoiceDetails
	ObserveCustomer(ctx context.Context, customerID snowflake.ID) <-chan *customerdomain.Customer

	AddInvoice(ctx context.Context, req AddInvoiceRequest) error
	AddPayment(ctx context.Context, req AddPaymentRequest) error
	AddNote(ctx context.Context, req AddNoteRequest) error
	PostponeDueDate(ctx context.Context, req PostponeDueDateRequest) error
	DeleteInvoice(ctx context.Context, invoiceID snowflake.ID) error
	DeleteCustomer(ctx context.Context, customerID snowflake.ID) error

	SignedScanURL(ctx context.Context, scanPath string) (string, error)
	SyncAllUserData(ctx context.Context, userID string) error
	SignOut(ctx context.Context, userID string) error
}
