package service

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ledgerline/internal/clock"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	"github.com/smallbiznis/ledgerline/internal/faults"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
	"github.com/smallbiznis/ledgerline/internal/localstore"
	"github.com/smallbiznis/ledgerline/internal/remote"
	"github.com/smallbiznis/ledgerline/internal/retry"
	"github.com/smallbiznis/ledgerline/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNode, _ = snowflake.NewNode(1)

// stubRemote records every backend call in order. Unset hooks succeed
// and return empty results.
type stubRemote struct {
	mu    stdsync.Mutex
	calls []string

	fetchCustomers func(ctx context.Context, userID string) ([]customerdomain.Customer, error)
	fetchInvoices  func(ctx context.Context, userID string) ([]invoicedomain.Invoice, error)
	fetchLogs      func(ctx context.Context, userID string) ([]interactiondomain.InteractionLog, error)
	upsertCustomer func(ctx context.Context, customer customerdomain.Customer) error
	insertInvoice  func(ctx context.Context, invoice invoicedomain.Invoice) error
	updateInvoice  func(ctx context.Context, id snowflake.ID, patch domain.InvoicePatch) error
	insertLog      func(ctx context.Context, entry interactiondomain.InteractionLog) error
	uploadScan     func(ctx context.Context, path string, data []byte) error
}

func (r *stubRemote) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *stubRemote) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *stubRemote) FetchCustomers(ctx context.Context, userID string) ([]customerdomain.Customer, error) {
	r.record("fetch_customers")
	if r.fetchCustomers != nil {
		return r.fetchCustomers(ctx, userID)
	}
	return nil, nil
}

func (r *stubRemote) FetchInvoices(ctx context.Context, userID string) ([]invoicedomain.Invoice, error) {
	r.record("fetch_invoices")
	if r.fetchInvoices != nil {
		return r.fetchInvoices(ctx, userID)
	}
	return nil, nil
}

func (r *stubRemote) FetchLogs(ctx context.Context, userID string) ([]interactiondomain.InteractionLog, error) {
	r.record("fetch_logs")
	if r.fetchLogs != nil {
		return r.fetchLogs(ctx, userID)
	}
	return nil, nil
}

func (r *stubRemote) UpsertCustomer(ctx context.Context, customer customerdomain.Customer) error {
	r.record("upsert_customer")
	if r.upsertCustomer != nil {
		return r.upsertCustomer(ctx, customer)
	}
	return nil
}

func (r *stubRemote) InsertInvoice(ctx context.Context, invoice invoicedomain.Invoice) error {
	r.record("insert_invoice")
	if r.insertInvoice != nil {
		return r.insertInvoice(ctx, invoice)
	}
	return nil
}

func (r *stubRemote) UpdateInvoice(ctx context.Context, id snowflake.ID, patch domain.InvoicePatch) error {
	r.record("update_invoice")
	if r.updateInvoice != nil {
		return r.updateInvoice(ctx, id, patch)
	}
	return nil
}

func (r *stubRemote) InsertLog(ctx context.Context, entry interactiondomain.InteractionLog) error {
	r.record("insert_log")
	if r.insertLog != nil {
		return r.insertLog(ctx, entry)
	}
	return nil
}

func (r *stubRemote) DeleteInvoice(ctx context.Context, id snowflake.ID) error {
	r.record("delete_invoice")
	return nil
}

func (r *stubRemote) DeleteInvoicesByCustomer(ctx context.Context, customerID snowflake.ID) error {
	r.record("delete_invoices_by_customer")
	return nil
}

func (r *stubRemote) DeleteLogsByInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error {
	r.record("delete_logs_by_invoices")
	return nil
}

func (r *stubRemote) DeleteCustomer(ctx context.Context, id snowflake.ID) error {
	r.record("delete_customer")
	return nil
}

func (r *stubRemote) UploadScan(ctx context.Context, path string, data []byte) error {
	r.record("upload_scan")
	if r.uploadScan != nil {
		return r.uploadScan(ctx, path, data)
	}
	return nil
}

func (r *stubRemote) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	r.record("signed_url")
	return "https://backend.example/storage/v1/object/sign/scans/" + path + "?token=sig", nil
}

type fixture struct {
	svc    domain.Service
	store  *localstore.Store
	remote *stubRemote
	clock  *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	store, err := localstore.New(db, log)
	require.NoError(t, err)

	stub := &stubRemote{}
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	svc := New(Params{
		Log:    log,
		Store:  store,
		Remote: stub,
		Retry: retry.Policy{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     4 * time.Millisecond,
			Multiplier:   2.0,
		},
		Clock:  fake,
		GenID:  testNode,
		Config: config.Config{SignedURLTTL: time.Hour},
	})
	return &fixture{svc: svc, store: store, remote: stub, clock: fake}
}

func addInvoiceRequest(userID string) domain.AddInvoiceRequest {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.AddInvoiceRequest{
		UserID:       userID,
		CustomerName: "Asha Traders",
		Phone:        "+628123456789",
		IssueDate:    issue,
		DueDate:      issue.AddDate(0, 0, 14),
		TotalAmount:  10000,
		ScanData:     []byte("jpegdata"),
	}
}

func (f *fixture) seedInvoice(t *testing.T, userID string, total, paid int64) invoicedomain.Invoice {
	t.Helper()
	now := f.clock.Now()
	customer := customerdomain.Customer{ID: testNode.Generate(), Name: "Asha Traders", CreatedAt: now, UpdatedAt: now}
	invoice := invoicedomain.Invoice{
		ID:          testNode.Generate(),
		CustomerID:  customer.ID,
		Status:      invoicedomain.StatusFor(paid, total),
		TotalAmount: total,
		AmountPaid:  paid,
		IssueDate:   now,
		DueDate:     now.AddDate(0, 0, 14),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.store.Apply(context.Background(), userID, localstore.WriteSet{
		Customers: []customerdomain.Customer{customer},
		Invoices:  []invoicedomain.Invoice{invoice},
	}))
	return invoice
}

func TestAddInvoiceRemoteStepsRunInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddInvoice(ctx, addInvoiceRequest("user-1")))

	assert.Equal(t, []string{"upload_scan", "upsert_customer", "insert_invoice"}, f.remote.recorded())

	invoices, err := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, invoicedomain.InvoiceStatusUnpaid, invoices[0].Status)
	assert.Equal(t, int64(10000), invoices[0].TotalAmount)
	assert.NotEmpty(t, invoices[0].ScanPath)

	customers, err := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Asha Traders", customers[0].Name)
	assert.Equal(t, customers[0].ID, invoices[0].CustomerID)
}

func TestAddInvoiceRemoteFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	f.remote.insertInvoice = func(context.Context, invoicedomain.Invoice) error {
		return &remote.APIError{Status: 401, Message: "jwt expired"}
	}
	ctx := context.Background()

	err := f.svc.AddInvoice(ctx, addInvoiceRequest("user-1"))
	require.Error(t, err)
	assert.Equal(t, faults.Auth, faults.Classify(err))

	invoices, lerr := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, lerr)
	assert.Empty(t, invoices)

	customers, lerr := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, lerr)
	assert.Empty(t, customers)
}

func TestAddInvoiceValidationFailsBeforeAnyRemoteCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*domain.AddInvoiceRequest){
		"blank name":        func(r *domain.AddInvoiceRequest) { r.CustomerName = "   " },
		"negative total":    func(r *domain.AddInvoiceRequest) { r.TotalAmount = -1 },
		"due before issue":  func(r *domain.AddInvoiceRequest) { r.DueDate = r.IssueDate.AddDate(0, 0, -1) },
		"due equals issue":  func(r *domain.AddInvoiceRequest) { r.DueDate = r.IssueDate },
		"missing scan":      func(r *domain.AddInvoiceRequest) { r.ScanData = nil },
		"missing user":      func(r *domain.AddInvoiceRequest) { r.UserID = "" },
		"unknown customer":  func(r *domain.AddInvoiceRequest) { r.CustomerID = testNode.Generate() },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := addInvoiceRequest("user-1")
			mutate(&req)

			err := f.svc.AddInvoice(ctx, req)
			require.Error(t, err)
			assert.Equal(t, faults.Validation, faults.Classify(err))
			assert.Empty(t, f.remote.recorded())
		})
	}
}

func TestAddInvoiceReusesExistingCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seedInvoice(t, "user-1", 10000, 0)

	req := addInvoiceRequest("user-1")
	req.CustomerID = seeded.CustomerID
	req.CustomerName = ""
	require.NoError(t, f.svc.AddInvoice(ctx, req))

	customers, err := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	invoices, err := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}

func TestAddInvoiceRetriesTransientRemoteFailure(t *testing.T) {
	f := newFixture(t)
	attempts := 0
	f.remote.uploadScan = func(context.Context, string, []byte) error {
		attempts++
		if attempts < 2 {
			return &remote.APIError{Status: 503, Message: "unavailable"}
		}
		return nil
	}
	ctx := context.Background()

	require.NoError(t, f.svc.AddInvoice(ctx, addInvoiceRequest("user-1")))
	assert.Equal(t, 2, attempts)
}

func TestAddPaymentDerivesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)

	var patches []domain.InvoicePatch
	f.remote.updateInvoice = func(_ context.Context, _ snowflake.ID, patch domain.InvoicePatch) error {
		patches = append(patches, patch)
		return nil
	}

	require.NoError(t, f.svc.AddPayment(ctx, domain.AddPaymentRequest{
		UserID:    "user-1",
		InvoiceID: invoice.ID,
		Amount:    4000,
	}))

	got, err := f.store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, got.Status)
	assert.Equal(t, int64(4000), got.AmountPaid)
	assert.Equal(t, int64(6000), got.BalanceDue())

	require.NoError(t, f.svc.AddPayment(ctx, domain.AddPaymentRequest{
		UserID:    "user-1",
		InvoiceID: invoice.ID,
		Amount:    6000,
	}))

	got, err = f.store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, got.Status)
	assert.Equal(t, int64(0), got.BalanceDue())

	require.Len(t, patches, 2)
	require.NotNil(t, patches[1].Status)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, *patches[1].Status)

	logs, err := f.store.ListLogs(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, interactiondomain.LogTypePayment, logs[0].Type)
	require.NotNil(t, logs[0].Amount)
	assert.Equal(t, int64(4000), *logs[0].Amount)
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 8000)

	err := f.svc.AddPayment(ctx, domain.AddPaymentRequest{
		UserID:    "user-1",
		InvoiceID: invoice.ID,
		Amount:    3000,
	})
	require.Error(t, err)
	assert.Equal(t, faults.Validation, faults.Classify(err))
	assert.ErrorIs(t, err, invoicedomain.ErrPaymentExceeds)
	assert.Empty(t, f.remote.recorded())

	got, gerr := f.store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, gerr)
	assert.Equal(t, int64(8000), got.AmountPaid)
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)

	for _, amount := range []int64{0, -500} {
		err := f.svc.AddPayment(ctx, domain.AddPaymentRequest{
			UserID:    "user-1",
			InvoiceID: invoice.ID,
			Amount:    amount,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
	}
	assert.Empty(t, f.remote.recorded())
}

func TestAddNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)

	t.Run("BlankNoteRejected", func(t *testing.T) {
		err := f.svc.AddNote(ctx, domain.AddNoteRequest{UserID: "user-1", InvoiceID: invoice.ID, Note: "  "})
		require.Error(t, err)
		assert.ErrorIs(t, err, interactiondomain.ErrInvalidNote)
		assert.Empty(t, f.remote.recorded())
	})

	t.Run("AppendsToTrail", func(t *testing.T) {
		require.NoError(t, f.svc.AddNote(ctx, domain.AddNoteRequest{
			UserID:    "user-1",
			InvoiceID: invoice.ID,
			Note:      "promised to pay next week",
		}))

		assert.Equal(t, []string{"insert_log"}, f.remote.recorded())

		logs, err := f.store.ListLogs(ctx, invoice.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, interactiondomain.LogTypeNote, logs[0].Type)
		assert.Equal(t, "promised to pay next week", logs[0].Note)
		assert.Nil(t, logs[0].Amount)
	})
}

func TestPostponeDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)

	t.Run("BackwardMoveRejected", func(t *testing.T) {
		err := f.svc.PostponeDueDate(ctx, domain.PostponeDueDateRequest{
			UserID:     "user-1",
			InvoiceID:  invoice.ID,
			NewDueDate: invoice.DueDate.AddDate(0, 0, -1),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, invoicedomain.ErrDueDateBackward)
		assert.Empty(t, f.remote.recorded())
	})

	t.Run("SameDateRejected", func(t *testing.T) {
		err := f.svc.PostponeDueDate(ctx, domain.PostponeDueDateRequest{
			UserID:     "user-1",
			InvoiceID:  invoice.ID,
			NewDueDate: invoice.DueDate,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, invoicedomain.ErrDueDateBackward)
	})

	t.Run("ForwardMoveRecordsTrail", func(t *testing.T) {
		newDue := invoice.DueDate.AddDate(0, 0, 7)
		require.NoError(t, f.svc.PostponeDueDate(ctx, domain.PostponeDueDateRequest{
			UserID:     "user-1",
			InvoiceID:  invoice.ID,
			NewDueDate: newDue,
			Reason:     "customer asked for extension",
		}))

		got, err := f.store.GetInvoice(ctx, invoice.ID)
		require.NoError(t, err)
		assert.True(t, got.DueDate.Equal(newDue))

		logs, err := f.store.ListLogs(ctx, invoice.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, interactiondomain.LogTypeDueDateChanged, logs[0].Type)
		assert.Equal(t, "customer asked for extension", logs[0].Note)
		assert.Equal(t, newDue.UTC().Format(time.RFC3339), logs[0].Metadata["new_due_date"])
	})
}

func TestDeleteInvoiceCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)
	require.NoError(t, f.svc.AddNote(ctx, domain.AddNoteRequest{
		UserID: "user-1", InvoiceID: invoice.ID, Note: "first call",
	}))
	f.remote.calls = nil

	require.NoError(t, f.svc.DeleteInvoice(ctx, invoice.ID))

	assert.Equal(t, []string{"delete_logs_by_invoices", "delete_invoice"}, f.remote.recorded())

	got, err := f.store.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	logs, err := f.store.ListLogs(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestDeleteCustomerCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "user-1", 10000, 0)

	require.NoError(t, f.svc.DeleteCustomer(ctx, invoice.CustomerID))

	assert.Equal(t,
		[]string{"delete_logs_by_invoices", "delete_invoices_by_customer", "delete_customer"},
		f.remote.recorded(),
	)

	customers, err := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, customers)

	invoices, err := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestSyncAllUserDataReplacesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	// A stale row the backend no longer has.
	f.seedInvoice(t, "user-1", 10000, 0)

	customer := customerdomain.Customer{ID: testNode.Generate(), Name: "Remote Truth", CreatedAt: now, UpdatedAt: now}
	invoice := invoicedomain.Invoice{
		ID: testNode.Generate(), CustomerID: customer.ID,
		Status: invoicedomain.InvoiceStatusUnpaid, TotalAmount: 5000,
		IssueDate: now, DueDate: now.AddDate(0, 0, 14),
		CreatedAt: now, UpdatedAt: now,
	}
	entry := interactiondomain.InteractionLog{
		ID: ulid.Make().String(), InvoiceID: invoice.ID,
		Type: interactiondomain.LogTypeNote, Note: "from backend", CreatedAt: now,
	}

	f.remote.fetchCustomers = func(context.Context, string) ([]customerdomain.Customer, error) {
		return []customerdomain.Customer{customer}, nil
	}
	f.remote.fetchInvoices = func(context.Context, string) ([]invoicedomain.Invoice, error) {
		return []invoicedomain.Invoice{invoice}, nil
	}
	f.remote.fetchLogs = func(context.Context, string) ([]interactiondomain.InteractionLog, error) {
		return []interactiondomain.InteractionLog{entry}, nil
	}

	// Running twice converges on the same state.
	require.NoError(t, f.svc.SyncAllUserData(ctx, "user-1"))
	require.NoError(t, f.svc.SyncAllUserData(ctx, "user-1"))

	customers, err := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Remote Truth", customers[0].Name)

	invoices, err := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, invoice.ID, invoices[0].ID)

	logs, err := f.store.ListLogs(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSyncAllUserDataFetchesRunConcurrently(t *testing.T) {
	f := newFixture(t)

	// Each fetch parks at a barrier until all three have started. A
	// sequential implementation would deadlock here.
	var barrier stdsync.WaitGroup
	barrier.Add(3)
	rendezvous := func() {
		barrier.Done()
		barrier.Wait()
	}
	f.remote.fetchCustomers = func(context.Context, string) ([]customerdomain.Customer, error) {
		rendezvous()
		return nil, nil
	}
	f.remote.fetchInvoices = func(context.Context, string) ([]invoicedomain.Invoice, error) {
		rendezvous()
		return nil, nil
	}
	f.remote.fetchLogs = func(context.Context, string) ([]interactiondomain.InteractionLog, error) {
		rendezvous()
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.svc.SyncAllUserData(context.Background(), "user-1")
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("fetches never overlapped")
	}
}

func TestSyncAllUserDataFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seedInvoice(t, "user-1", 10000, 0)

	f.remote.fetchInvoices = func(context.Context, string) ([]invoicedomain.Invoice, error) {
		return nil, &remote.APIError{Status: 401, Message: "jwt expired"}
	}

	err := f.svc.SyncAllUserData(ctx, "user-1")
	require.Error(t, err)
	assert.Equal(t, faults.Auth, faults.Classify(err))

	invoices, lerr := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, lerr)
	require.Len(t, invoices, 1)
	assert.Equal(t, seeded.ID, invoices[0].ID)
}

func TestSignOutClearsOnlyThatUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedInvoice(t, "user-1", 10000, 0)
	other := f.seedInvoice(t, "user-2", 7000, 0)

	require.NoError(t, f.svc.SignOut(ctx, "user-1"))

	invoices, err := f.store.ListInvoices(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, invoices)

	customers, err := f.store.ListCustomers(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, customers)

	kept, err := f.store.ListInvoices(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, other.ID, kept[0].ID)
}

func TestSignedScanURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("EmptyPathRejected", func(t *testing.T) {
		_, err := f.svc.SignedScanURL(ctx, "  ")
		require.Error(t, err)
		assert.Equal(t, faults.Validation, faults.Classify(err))
	})

	t.Run("DelegatesToRemote", func(t *testing.T) {
		url, err := f.svc.SignedScanURL(ctx, "user-1/abc.jpg")
		require.NoError(t, err)
		assert.Contains(t, url, "user-1/abc.jpg")
	})
}

func TestObserveReflectsWrites(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.svc.ObserveInvoices(ctx, "user-1")

	select {
	case snapshot := <-ch:
		assert.Empty(t, snapshot)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, f.svc.AddInvoice(ctx, addInvoiceRequest("user-1")))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snapshot, ok := <-ch:
			require.True(t, ok, "stream closed unexpectedly")
			if len(snapshot) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("write never reflected in stream")
		}
	}
}
