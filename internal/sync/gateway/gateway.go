// Package gateway adapts the generic backend client to the typed remote
// operations the repository needs.
package gateway

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	interactiondomain "github.com/smallbiznis/ledgerline/internal/interaction/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
	"github.com/smallbiznis/ledgerline/internal/remote"
	"github.com/smallbiznis/ledgerline/internal/sync/domain"
	"go.uber.org/fx"
)

const (
	tableCustomers = "customers"
	tableInvoices  = "invoices"
	tableLogs      = "interaction_logs"
)

type Params struct {
	fx.In

	Client *remote.Client
	Config config.Config
}

type gateway struct {
	client *remote.Client
	bucket string
}

// New builds the RemoteStore over the backend client.
func New(p Params) domain.RemoteStore {
	return &gateway{
		client: p.Client,
		bucket: p.Config.StorageBucket,
	}
}

func (g *gateway) FetchCustomers(ctx context.Context, userID string) ([]customerdomain.Customer, error) {
	customers := make([]customerdomain.Customer, 0)
	err := g.client.Select(ctx, tableCustomers, remote.Filter{"user_id": remote.Eq(userID)}, &customers)
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (g *gateway) FetchInvoices(ctx context.Context, userID string) ([]invoicedomain.Invoice, error) {
	invoices := make([]invoicedomain.Invoice, 0)
	err := g.client.Select(ctx, tableInvoices, remote.Filter{"user_id": remote.Eq(userID)}, &invoices)
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (g *gateway) FetchLogs(ctx context.Context, userID string) ([]interactiondomain.InteractionLog, error) {
	logs := make([]interactiondomain.InteractionLog, 0)
	err := g.client.Select(ctx, tableLogs, remote.Filter{"user_id": remote.Eq(userID)}, &logs)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (g *gateway) UpsertCustomer(ctx context.Context, customer customerdomain.Customer) error {
	return g.client.Upsert(ctx, tableCustomers, customer)
}

func (g *gateway) InsertInvoice(ctx context.Context, invoice invoicedomain.Invoice) error {
	return g.client.Insert(ctx, tableInvoices, invoice)
}

func (g *gateway) UpdateInvoice(ctx context.Context, id snowflake.ID, patch domain.InvoicePatch) error {
	return g.client.Update(ctx, tableInvoices, patch, remote.Filter{"id": remote.Eq(id)})
}

func (g *gateway) InsertLog(ctx context.Context, log interactiondomain.InteractionLog) error {
	return g.client.Insert(ctx, tableLogs, log)
}

func (g *gateway) DeleteInvoice(ctx context.Context, id snowflake.ID) error {
	return g.client.Delete(ctx, tableInvoices, remote.Filter{"id": remote.Eq(id)})
}

func (g *gateway) DeleteInvoicesByCustomer(ctx context.Context, customerID snowflake.ID) error {
	return g.client.Delete(ctx, tableInvoices, remote.Filter{"customer_id": remote.Eq(customerID)})
}

func (g *gateway) DeleteLogsByInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	values := make([]string, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		values = append(values, id.String())
	}
	return g.client.Delete(ctx, tableLogs, remote.Filter{"invoice_id": remote.In(values...)})
}

func (g *gateway) DeleteCustomer(ctx context.Context, id snowflake.ID) error {
	return g.client.Delete(ctx, tableCustomers, remote.Filter{"id": remote.Eq(id)})
}

func (g *gateway) UploadScan(ctx context.Context, path string, data []byte) error {
	return g.client.UploadObject(ctx, g.bucket, path, data, "image/jpeg")
}

func (g *gateway) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return g.client.CreateSignedURL(ctx, g.bucket, path, ttl)
}
