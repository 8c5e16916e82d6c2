// Package domain contains persistence models for customers.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidName = errors.New("customer name is required")
	ErrInvalidUser = errors.New("owning user is required")
	ErrNotFound    = errors.New("customer not found")
)

// Customer is a party the user invoices. Rows are scoped by the owning
// user so cached data never leaks across sign-in cycles on the same device.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"not null;index" json:"user_id"`
	Name      string            `gorm:"not null" json:"name"`
	Phone     string            `json:"phone,omitempty"`
	Email     string            `json:"email,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
