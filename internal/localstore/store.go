// Package localstore is the embedded cache backing all reads. It holds
// the three user-scoped tables and knows nothing about the network or
// business rules; derived values are computed by readers.
package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type table string

const (
	tableCustomers table = "customers"
	tableInvoices  table = "invoices"
	tableLogs      table = "interaction_logs"
)

// Store is safe for concurrent use. Every committed write broadcasts a
// change signal for the touched tables so live observers re-query.
type Store struct {
	db        *gorm.DB
	log       *zap.Logger
	notifiers map[table]*notifier
}

// Open opens (or creates) the cache database at path and migrates the
// schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}
	return New(db, log)
}

// New wraps an existing connection, migrating the schema. Tests pass an
// in-memory database here.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&interactiondomain.InteractionLog{},
	); err != nil {
		return nil, fmt.Errorf("localstore: migrate: %w", err)
	}
	return &Store{
		db:  db,
		log: log.Named("localstore"),
		notifiers: map[table]*notifier{
			tableCustomers: newNotifier(),
			tableInvoices:  newNotifier(),
			tableLogs:      newNotifier(),
		},
	}, nil
}

// WriteSet is a batch of rows committed in a single transaction: either
// the whole set lands or none of it does.
type WriteSet struct {
	Customers []customerdomain.Customer
	Invoices  []invoicedomain.Invoice
	Logs      []interactiondomain.InteractionLog
}

// Apply upserts the whole set by primary key, stamping every row with
// userID.
func (s *Store) Apply(ctx context.Context, userID string, set WriteSet) error {
	for i := range set.Customers {
		set.Customers[i].UserID = userID
	}
	for i := range set.Invoices {
		set.Invoices[i].UserID = userID
	}
	for i := range set.Logs {
		set.Logs[i].UserID = userID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(set.Customers) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&set.Customers).Error; err != nil {
				return err
			}
		}
		if len(set.Invoices) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&set.Invoices).Error; err != nil {
				return err
			}
		}
		if len(set.Logs) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&set.Logs).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("localstore: apply write set: %w", err)
	}

	s.broadcast(set.tables()...)
	return nil
}

func (w WriteSet) tables() []table {
	var touched []table
	if len(w.Customers) > 0 {
		touched = append(touched, tableCustomers)
	}
	if len(w.Invoices) > 0 {
		touched = append(touched, tableInvoices)
	}
	if len(w.Logs) > 0 {
		touched = append(touched, tableLogs)
	}
	return touched
}

// ReplaceAll swaps the user's cached rows for the authoritative remote
// set, all three tables in one transaction. Running it twice with the
// same input is a no-op for readers.
func (s *Store) ReplaceAll(
	ctx context.Context,
	userID string,
	customers []customerdomain.Customer,
	invoices []invoicedomain.Invoice,
	logs []interactiondomain.InteractionLog,
) error {
	for i := range customers {
		customers[i].UserID = userID
	}
	for i := range invoices {
		invoices[i].UserID = userID
	}
	for i := range logs {
		logs[i].UserID = userID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&interactiondomain.InteractionLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&invoicedomain.Invoice{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&customerdomain.Customer{}).Error; err != nil {
			return err
		}
		if len(customers) > 0 {
			if err := tx.Create(&customers).Error; err != nil {
				return err
			}
		}
		if len(invoices) > 0 {
			if err := tx.Create(&invoices).Error; err != nil {
				return err
			}
		}
		if len(logs) > 0 {
			if err := tx.Create(&logs).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("localstore: replace user data: %w", err)
	}

	s.broadcast(tableCustomers, tableInvoices, tableLogs)
	return nil
}

// Clear deletes every cached row for a user. Used on sign-out.
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.ReplaceAll(ctx, userID, nil, nil, nil)
}

// DeleteInvoice removes an invoice and its interaction logs.
func (s *Store) DeleteInvoice(ctx context.Context, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&interactiondomain.InteractionLog{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&invoicedomain.Invoice{}).Error
	})
	if err != nil {
		return fmt.Errorf("localstore: delete invoice: %w", err)
	}

	s.broadcast(tableInvoices, tableLogs)
	return nil
}

// DeleteCustomer removes a customer, cascading to their invoices and the
// invoices' logs.
func (s *Store) DeleteCustomer(ctx context.Context, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoiceIDs []snowflake.ID
		if err := tx.Model(&invoicedomain.Invoice{}).
			Where("customer_id = ?", id).
			Pluck("id", &invoiceIDs).Error; err != nil {
			return err
		}
		if len(invoiceIDs) > 0 {
			if err := tx.Where("invoice_id IN ?", invoiceIDs).Delete(&interactiondomain.InteractionLog{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("customer_id = ?", id).Delete(&invoicedomain.Invoice{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&customerdomain.Customer{}).Error
	})
	if err != nil {
		return fmt.Errorf("localstore: delete customer: %w", err)
	}

	s.broadcast(tableCustomers, tableInvoices, tableLogs)
	return nil
}

// GetInvoice returns the invoice or nil when it is not cached.
func (s *Store) GetInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get invoice: %w", err)
	}
	return &invoice, nil
}

// GetCustomer returns the customer or nil when it is not cached.
func (s *Store) GetCustomer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: get customer: %w", err)
	}
	return &customer, nil
}

// ListInvoices returns the user's invoices, newest first.
func (s *Store) ListInvoices(ctx context.Context, userID string) ([]invoicedomain.Invoice, error) {
	invoices := make([]invoicedomain.Invoice, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("localstore: list invoices: %w", err)
	}
	return invoices, nil
}

// ListCustomers returns the user's customers, newest first.
func (s *Store) ListCustomers(ctx context.Context, userID string) ([]customerdomain.Customer, error) {
	customers := make([]customerdomain.Customer, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("localstore: list customers: %w", err)
	}
	return customers, nil
}

// ListLogs returns an invoice's interaction trail in chronological order.
func (s *Store) ListLogs(ctx context.Context, invoiceID snowflake.ID) ([]interactiondomain.InteractionLog, error) {
	logs := make([]interactiondomain.InteractionLog, 0)
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc, id asc").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("localstore: list logs: %w", err)
	}
	return logs, nil
}

// ListInvoiceIDsByCustomer returns the ids of a customer's invoices.
func (s *Store) ListInvoiceIDsByCustomer(ctx context.Context, customerID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("customer_id = ?", customerID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("localstore: list invoice ids: %w", err)
	}
	return ids, nil
}

func (s *Store) notifier(t table) *notifier {
	return s.notifiers[t]
}

func (s *Store) broadcast(tables ...table) {
	for _, t := range tables {
		s.notifiers[t].broadcast()
	}
}
