// Package domain contains persistence models for invoices.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. Overdue is not a
// stored state; it is derived at read time from the status and due date.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid        InvoiceStatus = "UNPAID"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidTotal    = errors.New("total amount must not be negative")
	ErrInvalidDueDate  = errors.New("due date must be after the issue date")
	ErrDueDateBackward = errors.New("due date can only move forward")
	ErrPaymentExceeds  = errors.New("payment exceeds the outstanding balance")
	ErrMissingScan     = errors.New("scanned document is required")
	ErrNotFound        = errors.New("invoice not found")
)

// Invoice is a single receivable. Amounts are minor currency units.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	UserID      string            `gorm:"not null;index" json:"user_id"`
	Status      InvoiceStatus     `gorm:"type:text;not null;default:'UNPAID'" json:"status"`
	TotalAmount int64             `gorm:"not null;default:0" json:"total_amount"`
	AmountPaid  int64             `gorm:"not null;default:0" json:"amount_paid"`
	IssueDate   time.Time         `gorm:"not null" json:"issue_date"`
	DueDate     time.Time         `gorm:"not null" json:"due_date"`
	ScanPath    string            `gorm:"type:text" json:"scan_path,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// StatusFor derives the stored status from payment progress.
func StatusFor(amountPaid, totalAmount int64) InvoiceStatus {
	switch {
	case amountPaid >= totalAmount:
		return InvoiceStatusPaid
	case amountPaid > 0:
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusUnpaid
	}
}

// BalanceDue returns the outstanding amount, floored at zero for display.
func (i Invoice) BalanceDue() int64 {
	balance := i.TotalAmount - i.AmountPaid
	if balance < 0 {
		return 0
	}
	return balance
}

// IsOverdue reports whether the invoice is unpaid past its due date.
// The comparison is on calendar days in UTC, not instants.
func (i Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusPaid {
		return false
	}
	due := i.DueDate.UTC()
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return dueDay.Before(today)
}

// InvoiceDetails joins one invoice with its interaction history.
// Invoice is nil when the row no longer exists locally.
type InvoiceDetails struct {
	Invoice *Invoice
	Logs    []interactiondomain.InteractionLog
}
