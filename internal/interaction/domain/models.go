// Package domain contains persistence models for interaction logs.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// LogType tags an interaction log entry.
type LogType string

const (
	LogTypePayment        LogType = "PAYMENT"
	LogTypeNote           LogType = "NOTE"
	LogTypeDueDateChanged LogType = "DUE_DATE_CHANGED"
)

var ErrInvalidNote = errors.New("note text is required")

// InteractionLog is one entry in an invoice's append-only audit trail.
// Entries are never mutated; they are inserted and only removed as a
// cascade of invoice deletion. IDs are ULIDs so the trail sorts by time.
type InteractionLog struct {
	ID        string            `gorm:"primaryKey;type:text" json:"id"`
	InvoiceID snowflake.ID      `gorm:"not null;index" json:"invoice_id"`
	UserID    string            `gorm:"not null;index" json:"user_id"`
	Type      LogType           `gorm:"type:text;not null" json:"type"`
	Note      string            `gorm:"type:text" json:"note,omitempty"`
	Amount    *int64            `json:"amount,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InteractionLog) TableName() string { return "interaction_logs" }
