package localstore

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/ledgerline/internal/invoice/domain"
	"go.uber.org/zap"
)

// ObserveInvoices emits the user's invoice list immediately and again on
// every change to the invoices table. The channel closes when ctx ends.
func (s *Store) ObserveInvoices(ctx context.Context, userID string) <-chan []invoicedomain.Invoice {
	return observe(ctx, s, []table{tableInvoices}, func(ctx context.Context) ([]invoicedomain.Invoice, error) {
		return s.ListInvoices(ctx, userID)
	})
}

// ObserveCustomers emits the user's customer list immediately and on
// every change.
func (s *Store) ObserveCustomers(ctx context.Context, userID string) <-chan []customerdomain.Customer {
	return observe(ctx, s, []table{tableCustomers}, func(ctx context.Context) ([]customerdomain.Customer, error) {
		return s.ListCustomers(ctx, userID)
	})
}

// ObserveCustomer emits a single customer (nil once deleted).
func (s *Store) ObserveCustomer(ctx context.Context, id snowflake.ID) <-chan *customerdomain.Customer {
	return observe(ctx, s, []table{tableCustomers}, func(ctx context.Context) (*customerdomain.Customer, error) {
		return s.GetCustomer(ctx, id)
	})
}

// ObserveInvoiceDetails joins one invoice with its logs, re-emitting
// whenever either table changes.
func (s *Store) ObserveInvoiceDetails(ctx context.Context, id snowflake.ID) <-chan invoicedomain.InvoiceDetails {
	return observe(ctx, s, []table{tableInvoices, tableLogs}, func(ctx context.Context) (invoicedomain.InvoiceDetails, error) {
		invoice, err := s.GetInvoice(ctx, id)
		if err != nil {
			return invoicedomain.InvoiceDetails{}, err
		}
		logs, err := s.ListLogs(ctx, id)
		if err != nil {
			return invoicedomain.InvoiceDetails{}, err
		}
		return invoicedomain.InvoiceDetails{Invoice: invoice, Logs: logs}, nil
	})
}

// observe runs the subscription loop: take change signals, query, emit,
// wait. Signals are taken before the query so a write landing between
// query and wait still triggers a re-emit. Emission keeps latest-value
// semantics; a slow consumer sees the freshest snapshot instead of
// blocking writers.
func observe[T any](ctx context.Context, s *Store, tables []table, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)

	go func() {
		defer close(out)
		for {
			sigs := make([]<-chan struct{}, 0, len(tables))
			for _, t := range tables {
				sigs = append(sigs, s.notifier(t).signal())
			}

			value, err := query(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error("observe query failed", zap.Error(err))
			} else {
				emit(ctx, out, value)
			}

			first := sigs[0]
			second := first
			if len(sigs) > 1 {
				second = sigs[1]
			}
			select {
			case <-ctx.Done():
				return
			case <-first:
			case <-second:
			}
		}
	}()

	return out
}

func emit[T any](ctx context.Context, out chan T, value T) {
	select {
	case out <- value:
		return
	default:
	}
	// Buffer full: drop the stale snapshot. The loop goroutine is the
	// only sender, so the follow-up send cannot block indefinitely.
	select {
	case <-out:
	default:
	}
	select {
	case out <- value:
	case <-ctx.Done():
	}
}
