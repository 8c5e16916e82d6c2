// Package service implements the local-first repository: reads stream
// from the embedded cache, writes mutate the remote store first and
// confirm locally only after every remote step succeeded.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ledgerline/internal/clock"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	"github.com/smallbiznis/ledgerline/internal/faults"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
	"github.com/smallbiznis/ledgerline/internal/localstore"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"github.com/smallbiznis/ledgerline/internal/retry"
	"github.com/smallbiznis/ledgerline/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const (
	opAddInvoice      = "add_invoice"
	opAddPayment      = "add_payment"
	opAddNote         = "add_note"
	opPostponeDueDate = "postpone_due_date"
	opDeleteInvoice   = "delete_invoice"
	opDeleteCustomer  = "delete_customer"
	opSignOut         = "sign_out"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Store  *localstore.Store
	Remote domain.RemoteStore
	Retry  retry.Policy
	Clock  clock.Clock
	GenID  *snowflake.Node
	Config config.Config
}

type Service struct {
	log          *zap.Logger
	store        *localstore.Store
	remote       domain.RemoteStore
	retry        retry.Policy
	clock        clock.Clock
	genID        *snowflake.Node
	signedURLTTL time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Config.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		log:          p.Log.Named("sync.service"),
		store:        p.Store,
		remote:       p.Remote,
		retry:        p.Retry,
		clock:        p.Clock,
		genID:        p.GenID,
		signedURLTTL: ttl,
	}
}

// Read path. Streams come straight from the cache and never fail on
// connectivity; stale-but-valid data beats an error screen.

func (s *Service) ObserveInvoices(ctx context.Context, userID string) <-chan []invoicedomain.Invoice {
	return s.store.ObserveInvoices(ctx, userID)
}

func (s *Service) ObserveCustomers(ctx context.Context, userID string) <-chan []customerdomain.Customer {
	return s.store.ObserveCustomers(ctx, userID)
}

func (s *Service) ObserveInvoiceDetails(ctx context.Context, invoiceID snowflake.ID) <-chan invoicedomain.InvoiceDetails {
	return s.store.ObserveInvoiceDetails(ctx, invoiceID)
}

func (s *Service) ObserveCustomer(ctx context.Context, customerID snowflake.ID) <-chan *customerdomain.Customer {
	return s.store.ObserveCustomer(ctx, customerID)
}

// Write path. Each operation validates up front, runs its remote steps
// in a fixed order under the retry policy, and touches the cache only
// once every remote step has succeeded. Cancellation is honored before
// the first remote mutation; after that the operation runs to
// completion so the cache never trails a half-applied remote change.

func (s *Service) AddInvoice(ctx context.Context, req domain.AddInvoiceRequest) error {
	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return s.fail(opAddInvoice, err)
	}
	switch {
	case req.TotalAmount < 0:
		return s.fail(opAddInvoice, validation(invoicedomain.ErrInvalidTotal))
	case !req.DueDate.After(req.IssueDate):
		return s.fail(opAddInvoice, validation(invoicedomain.ErrInvalidDueDate))
	case len(req.ScanData) == 0:
		return s.fail(opAddInvoice, validation(invoicedomain.ErrMissingScan))
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opAddInvoice, err)
	}

	now := s.clock.Now()
	scanPath := req.UserID + "/" + uuid.NewString() + ".jpg"
	invoice := invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		CustomerID:  customer.ID,
		UserID:      req.UserID,
		Status:      invoicedomain.InvoiceStatusUnpaid,
		TotalAmount: req.TotalAmount,
		AmountPaid:  0,
		IssueDate:   req.IssueDate,
		DueDate:     req.DueDate,
		ScanPath:    scanPath,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Fixed order: the customer row must exist before the invoice that
	// references it, and the scan must be stored before either.
	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.UploadScan(ctx, scanPath, req.ScanData)
	}); err != nil {
		return s.fail(opAddInvoice, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.UpsertCustomer(ctx, customer)
	}); err != nil {
		return s.fail(opAddInvoice, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.InsertInvoice(ctx, invoice)
	}); err != nil {
		return s.fail(opAddInvoice, err)
	}

	if err := s.store.Apply(mctx, req.UserID, localstore.WriteSet{
		Customers: []customerdomain.Customer{customer},
		Invoices:  []invoicedomain.Invoice{invoice},
	}); err != nil {
		return s.fail(opAddInvoice, err)
	}
	return s.done(opAddInvoice)
}

func (s *Service) AddPayment(ctx context.Context, req domain.AddPaymentRequest) error {
	if req.Amount <= 0 {
		return s.fail(opAddPayment, validation(invoicedomain.ErrInvalidAmount))
	}
	invoice, err := s.requireInvoice(ctx, req.InvoiceID)
	if err != nil {
		return s.fail(opAddPayment, err)
	}
	if invoice.AmountPaid+req.Amount > invoice.TotalAmount {
		return s.fail(opAddPayment, validation(invoicedomain.ErrPaymentExceeds))
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opAddPayment, err)
	}

	now := s.clock.Now()
	invoice.AmountPaid += req.Amount
	invoice.Status = invoicedomain.StatusFor(invoice.AmountPaid, invoice.TotalAmount)
	invoice.UpdatedAt = now

	amount := req.Amount
	entry := interactiondomain.InteractionLog{
		ID:        ulid.Make().String(),
		InvoiceID: invoice.ID,
		UserID:    invoice.UserID,
		Type:      interactiondomain.LogTypePayment,
		Note:      strings.TrimSpace(req.Note),
		Amount:    &amount,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
	}

	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.UpdateInvoice(ctx, invoice.ID, domain.InvoicePatch{
			AmountPaid: &invoice.AmountPaid,
			Status:     &invoice.Status,
			UpdatedAt:  &now,
		})
	}); err != nil {
		return s.fail(opAddPayment, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.InsertLog(ctx, entry)
	}); err != nil {
		return s.fail(opAddPayment, err)
	}

	if err := s.store.Apply(mctx, invoice.UserID, localstore.WriteSet{
		Invoices: []invoicedomain.Invoice{*invoice},
		Logs:     []interactiondomain.InteractionLog{entry},
	}); err != nil {
		return s.fail(opAddPayment, err)
	}
	return s.done(opAddPayment)
}

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) error {
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return s.fail(opAddNote, validation(interactiondomain.ErrInvalidNote))
	}
	invoice, err := s.requireInvoice(ctx, req.InvoiceID)
	if err != nil {
		return s.fail(opAddNote, err)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opAddNote, err)
	}

	entry := interactiondomain.InteractionLog{
		ID:        ulid.Make().String(),
		InvoiceID: invoice.ID,
		UserID:    invoice.UserID,
		Type:      interactiondomain.LogTypeNote,
		Note:      note,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: s.clock.Now(),
	}

	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.InsertLog(ctx, entry)
	}); err != nil {
		return s.fail(opAddNote, err)
	}

	if err := s.store.Apply(mctx, invoice.UserID, localstore.WriteSet{
		Logs: []interactiondomain.InteractionLog{entry},
	}); err != nil {
		return s.fail(opAddNote, err)
	}
	return s.done(opAddNote)
}

func (s *Service) PostponeDueDate(ctx context.Context, req domain.PostponeDueDateRequest) error {
	invoice, err := s.requireInvoice(ctx, req.InvoiceID)
	if err != nil {
		return s.fail(opPostponeDueDate, err)
	}
	if !req.NewDueDate.After(invoice.DueDate) {
		return s.fail(opPostponeDueDate, validation(invoicedomain.ErrDueDateBackward))
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opPostponeDueDate, err)
	}

	now := s.clock.Now()
	previousDue := invoice.DueDate
	invoice.DueDate = req.NewDueDate
	invoice.UpdatedAt = now

	entry := interactiondomain.InteractionLog{
		ID:        ulid.Make().String(),
		InvoiceID: invoice.ID,
		UserID:    invoice.UserID,
		Type:      interactiondomain.LogTypeDueDateChanged,
		Note:      strings.TrimSpace(req.Reason),
		Metadata: datatypes.JSONMap{
			"previous_due_date": previousDue.UTC().Format(time.RFC3339),
			"new_due_date":      req.NewDueDate.UTC().Format(time.RFC3339),
		},
		CreatedAt: now,
	}

	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.UpdateInvoice(ctx, invoice.ID, domain.InvoicePatch{
			DueDate:   &invoice.DueDate,
			UpdatedAt: &now,
		})
	}); err != nil {
		return s.fail(opPostponeDueDate, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.InsertLog(ctx, entry)
	}); err != nil {
		return s.fail(opPostponeDueDate, err)
	}

	if err := s.store.Apply(mctx, invoice.UserID, localstore.WriteSet{
		Invoices: []invoicedomain.Invoice{*invoice},
		Logs:     []interactiondomain.InteractionLog{entry},
	}); err != nil {
		return s.fail(opPostponeDueDate, err)
	}
	return s.done(opPostponeDueDate)
}

func (s *Service) DeleteInvoice(ctx context.Context, invoiceID snowflake.ID) error {
	invoice, err := s.requireInvoice(ctx, invoiceID)
	if err != nil {
		return s.fail(opDeleteInvoice, err)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opDeleteInvoice, err)
	}

	// Logs first: they reference the invoice row.
	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.DeleteLogsByInvoices(ctx, []snowflake.ID{invoice.ID})
	}); err != nil {
		return s.fail(opDeleteInvoice, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.DeleteInvoice(ctx, invoice.ID)
	}); err != nil {
		return s.fail(opDeleteInvoice, err)
	}

	if err := s.store.DeleteInvoice(mctx, invoice.ID); err != nil {
		return s.fail(opDeleteInvoice, err)
	}
	return s.done(opDeleteInvoice)
}

func (s *Service) DeleteCustomer(ctx context.Context, customerID snowflake.ID) error {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return s.fail(opDeleteCustomer, err)
	}
	if customer == nil {
		return s.fail(opDeleteCustomer, validation(customerdomain.ErrNotFound))
	}
	invoiceIDs, err := s.store.ListInvoiceIDsByCustomer(ctx, customerID)
	if err != nil {
		return s.fail(opDeleteCustomer, err)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(opDeleteCustomer, err)
	}

	mctx := context.WithoutCancel(ctx)
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.DeleteLogsByInvoices(ctx, invoiceIDs)
	}); err != nil {
		return s.fail(opDeleteCustomer, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.DeleteInvoicesByCustomer(ctx, customerID)
	}); err != nil {
		return s.fail(opDeleteCustomer, err)
	}
	if err := s.retry.Do(mctx, func(ctx context.Context) error {
		return s.remote.DeleteCustomer(ctx, customerID)
	}); err != nil {
		return s.fail(opDeleteCustomer, err)
	}

	if err := s.store.DeleteCustomer(mctx, customerID); err != nil {
		return s.fail(opDeleteCustomer, err)
	}
	return s.done(opDeleteCustomer)
}

// SignedScanURL returns a time-limited read URL for a stored scan.
func (s *Service) SignedScanURL(ctx context.Context, scanPath string) (string, error) {
	if strings.TrimSpace(scanPath) == "" {
		return "", faults.New(faults.Validation, "scan path is required")
	}
	var signed string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		url, err := s.remote.SignedURL(ctx, scanPath, s.signedURLTTL)
		if err != nil {
			return err
		}
		signed = url
		return nil
	})
	if err != nil {
		return "", faults.Normalize(err)
	}
	return signed, nil
}

// SyncAllUserData fetches all three collections in parallel and, only if
// every fetch succeeded, atomically replaces the cached rows. A failed
// fetch leaves the cache untouched: stale-but-consistent beats partial.
func (s *Service) SyncAllUserData(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return faults.Wrap(faults.Validation, customerdomain.ErrInvalidUser.Error(), customerdomain.ErrInvalidUser)
	}

	start := s.clock.Now()
	var (
		customers []customerdomain.Customer
		invoices  []invoicedomain.Invoice
		logs      []interactiondomain.InteractionLog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.retry.Do(gctx, func(ctx context.Context) error {
			fetched, err := s.remote.FetchCustomers(ctx, userID)
			if err != nil {
				return err
			}
			customers = fetched
			return nil
		})
	})
	g.Go(func() error {
		return s.retry.Do(gctx, func(ctx context.Context) error {
			fetched, err := s.remote.FetchInvoices(ctx, userID)
			if err != nil {
				return err
			}
			invoices = fetched
			return nil
		})
	})
	g.Go(func() error {
		return s.retry.Do(gctx, func(ctx context.Context) error {
			fetched, err := s.remote.FetchLogs(ctx, userID)
			if err != nil {
				return err
			}
			logs = fetched
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		obsmetrics.Sync().IncSyncRun(obsmetrics.ResultError)
		s.log.Warn("full sync failed", zap.String("user_id", userID), zap.Error(err))
		return faults.Normalize(err)
	}

	if err := s.store.ReplaceAll(ctx, userID, customers, invoices, logs); err != nil {
		obsmetrics.Sync().IncSyncRun(obsmetrics.ResultError)
		return faults.Normalize(err)
	}

	obsmetrics.Sync().IncSyncRun(obsmetrics.ResultOK)
	obsmetrics.Sync().ObserveSyncDuration(s.clock.Now().Sub(start))
	s.log.Info("full sync complete",
		zap.String("user_id", userID),
		zap.Int("customers", len(customers)),
		zap.Int("invoices", len(invoices)),
		zap.Int("logs", len(logs)),
	)
	return nil
}

// SignOut drops every cached row for the user so the next account on
// this device cannot observe stale financial data.
func (s *Service) SignOut(ctx context.Context, userID string) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return s.fail(opSignOut, err)
	}
	return s.done(opSignOut)
}

// resolveCustomer validates the customer half of an AddInvoice request:
// either an existing cached customer (contact details refreshed from the
// request) or a brand new one.
func (s *Service) resolveCustomer(ctx context.Context, req domain.AddInvoiceRequest) (customerdomain.Customer, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return customerdomain.Customer{}, validation(customerdomain.ErrInvalidUser)
	}

	now := s.clock.Now()
	name := strings.TrimSpace(req.CustomerName)

	if req.CustomerID != 0 {
		existing, err := s.store.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return customerdomain.Customer{}, err
		}
		if existing == nil {
			return customerdomain.Customer{}, validation(customerdomain.ErrNotFound)
		}
		customer := *existing
		if name != "" {
			customer.Name = name
		}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			customer.Phone = phone
		}
		if email := strings.TrimSpace(req.Email); email != "" {
			customer.Email = email
		}
		customer.UpdatedAt = now
		return customer, nil
	}

	if name == "" {
		return customerdomain.Customer{}, validation(customerdomain.ErrInvalidName)
	}
	return customerdomain.Customer{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.TrimSpace(req.Email),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) requireInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, validation(invoicedomain.ErrNotFound)
	}
	return invoice, nil
}

func validation(err error) error {
	return faults.Wrap(faults.Validation, err.Error(), err)
}

func (s *Service) fail(op string, err error) error {
	obsmetrics.Sync().IncWriteOp(op, obsmetrics.ResultError)
	return faults.Normalize(err)
}

func (s *Service) done(op string) error {
	obsmetrics.Sync().IncWriteOp(op, obsmetrics.ResultOK)
	return nil
}
