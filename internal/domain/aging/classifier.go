// Package aging classifies outstanding payable and receivable balances into
// 0-30, 31-60 and 60+ day buckets per counterparty.
package aging

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Bucket identifies an aging range
type Bucket string

const (
	Bucket0To30  Bucket = "0-30"
	Bucket31To60 Bucket = "31-60"
	Bucket60Plus Bucket = "60+"
)

// Upper bounds (inclusive, in days) of the first two buckets
const (
	bucketBoundA = 30
	bucketBoundB = 60
)

// BucketFor returns the bucket an age in days falls into. Ages not yet due (negative) count as 0-30.
func BucketFor(ageDays int) Bucket {
	switch {
	case ageDays <= bucketBoundA:
		return Bucket0To30
	case ageDays <= bucketBoundB:
		return Bucket31To60
	default:
		return Bucket60Plus
	}
}

// CounterpartyBalance is the outstanding position of one supplier or customer
type CounterpartyBalance struct {
	CounterpartyID   uuid.UUID       `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Aging0To30       decimal.Decimal `json:"aging_0_30"`
	Aging31To60      decimal.Decimal `json:"aging_31_60"`
	Aging60Plus      decimal.Decimal `json:"aging_60_plus"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transaction_count"`
}

// Overdue is the balance older than 30 days
func (b CounterpartyBalance) Overdue() decimal.Decimal {
	return b.Aging31To60.Add(b.Aging60Plus)
}

func (b *CounterpartyBalance) add(bucket Bucket, total, paid, balance decimal.Decimal) {
	switch bucket {
	case Bucket0To30:
		b.Aging0To30 = b.Aging0To30.Add(balance)
	case Bucket31To60:
		b.Aging31To60 = b.Aging31To60.Add(balance)
	default:
		b.Aging60Plus = b.Aging60Plus.Add(balance)
	}
	b.TotalAmount = b.TotalAmount.Add(total)
	b.PaidAmount = b.PaidAmount.Add(paid)
	b.Balance = b.Balance.Add(balance)
	b.TransactionCount++
}

// SortField selects the ordering of classified balances
type SortField string

const (
	SortByBalance SortField = "balance"
	SortByName    SortField = "name"
	SortByTotal   SortField = "total"
	SortByOverdue SortField = "overdue"
)

// IsValid checks if the sort field is known
func (f SortField) IsValid() bool {
	switch f {
	case SortByBalance, SortByName, SortByTotal, SortByOverdue:
		return true
	}
	return false
}

type options struct {
	sortBy     SortField
	descending bool
}

func defaultOptions() options {
	return options{sortBy: SortByBalance, descending: true}
}

// Option configures classification output
type Option func(*options)

// SortBy sets the sort field. Unknown fields keep the default.
func SortBy(field SortField) Option {
	return func(o *options) {
		if field.IsValid() {
			o.sortBy = field
		}
	}
}

// Descending sets the sort direction
func Descending(desc bool) Option {
	return func(o *options) {
		o.descending = desc
	}
}

// AgeDays is the number of whole calendar days from reference to asOf, compared in asOf's location
func AgeDays(reference, asOf time.Time) int {
	loc := asOf.Location()
	ref := reference.In(loc)
	from := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Classify groups open transactions by counterparty and buckets their balances by age.
// Voided transactions and those with no positive balance are skipped. The input is not modified.
func Classify(items []ledger.Transaction, asOf time.Time, opts ...Option) []CounterpartyBalance {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	balances := accumulate(items, asOf)
	sortBalances(balances, o)
	return balances
}

func accumulate(items []ledger.Transaction, asOf time.Time) []CounterpartyBalance {
	index := make(map[uuid.UUID]int)
	var balances []CounterpartyBalance

	for i := range items {
		tx := &items[i]
		if tx.IsVoided() {
			continue
		}
		paid := tx.PaidAmount()
		balance := tx.TotalAmount.Sub(paid)
		if !balance.IsPositive() {
			continue
		}

		pos, ok := index[tx.CounterpartyID]
		if !ok {
			pos = len(balances)
			index[tx.CounterpartyID] = pos
			balances = append(balances, CounterpartyBalance{
				CounterpartyID:   tx.CounterpartyID,
				CounterpartyName: tx.CounterpartyName,
				Aging0To30:       decimal.Zero,
				Aging31To60:      decimal.Zero,
				Aging60Plus:      decimal.Zero,
				TotalAmount:      decimal.Zero,
				PaidAmount:       decimal.Zero,
				Balance:          decimal.Zero,
			})
		}
		bucket := BucketFor(AgeDays(tx.ReferenceDate(), asOf))
		balances[pos].add(bucket, tx.TotalAmount, paid, balance)
	}
	return balances
}

func sortBalances(balances []CounterpartyBalance, o options) {
	sort.SliceStable(balances, func(i, j int) bool {
		a, b := balances[i], balances[j]
		var c int
		switch o.sortBy {
		case SortByName:
			c = strings.Compare(a.CounterpartyName, b.CounterpartyName)
		case SortByTotal:
			c = a.TotalAmount.Cmp(b.TotalAmount)
		case SortByOverdue:
			c = a.Overdue().Cmp(b.Overdue())
		default:
			c = a.Balance.Cmp(b.Balance)
		}
		if c != 0 {
			if o.descending {
				return c > 0
			}
			return c < 0
		}
		if n := strings.Compare(a.CounterpartyName, b.CounterpartyName); n != 0 {
			return n < 0
		}
		return strings.Compare(a.CounterpartyID.String(), b.CounterpartyID.String()) < 0
	})
}

// ClassifyConcurrent produces the same result as Classify, sharding the input by
// counterparty across workers. Shards are disjoint so no merge of partial balances is needed.
func ClassifyConcurrent(ctx context.Context, items []ledger.Transaction, asOf time.Time, workers int, opts ...Option) ([]CounterpartyBalance, error) {
	if workers < 1 {
		workers = 1
	}
	if workers == 1 || len(items) < workers {
		return Classify(items, asOf, opts...), nil
	}

	shards := make([][]ledger.Transaction, workers)
	shardOf := make(map[uuid.UUID]int)
	for i := range items {
		id := items[i].CounterpartyID
		s, ok := shardOf[id]
		if !ok {
			s = len(shardOf) % workers
			shardOf[id] = s
		}
		shards[s] = append(shards[s], items[i])
	}

	results := make([][]CounterpartyBalance, workers)
	g, gctx := errgroup.WithContext(ctx)
	for s := range shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[s] = accumulate(shards[s], asOf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []CounterpartyBalance
	for _, r := range results {
		merged = append(merged, r...)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	sortBalances(merged, o)
	return merged, nil
}

// Overpayment flags a transaction whose payments exceed its total
type Overpayment struct {
	TransactionID    uuid.UUID       `json:"transaction_id"`
	DocumentNumber   string          `json:"document_number"`
	CounterpartyID   uuid.UUID       `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	Excess           decimal.Decimal `json:"excess"`
}

// DetectOverpayments lists every unvoided transaction with a negative balance
func DetectOverpayments(items []ledger.Transaction) []Overpayment {
	var out []Overpayment
	for i := range items {
		tx := &items[i]
		if tx.IsVoided() {
			continue
		}
		paid := tx.PaidAmount()
		if !paid.GreaterThan(tx.TotalAmount) {
			continue
		}
		out = append(out, Overpayment{
			TransactionID:    tx.ID,
			DocumentNumber:   tx.DocumentNumber,
			CounterpartyID:   tx.CounterpartyID,
			CounterpartyName: tx.CounterpartyName,
			TotalAmount:      tx.TotalAmount,
			PaidAmount:       paid,
			Excess:           paid.Sub(tx.TotalAmount),
		})
	}
	return out
}

// Totals aggregates a report across counterparties
type Totals struct {
	Counterparties int             `json:"counterparties"`
	Aging0To30     decimal.Decimal `json:"aging_0_30"`
	Aging31To60    decimal.Decimal `json:"aging_31_60"`
	Aging60Plus    decimal.Decimal `json:"aging_60_plus"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Balance        decimal.Decimal `json:"balance"`
}

// Summarize sums classified balances
func Summarize(balances []CounterpartyBalance) Totals {
	t := Totals{
		Counterparties: len(balances),
		Aging0To30:     decimal.Zero,
		Aging31To60:    decimal.Zero,
		Aging60Plus:    decimal.Zero,
		TotalAmount:    decimal.Zero,
		PaidAmount:     decimal.Zero,
		Balance:        decimal.Zero,
	}
	for _, b := range balances {
		t.Aging0To30 = t.Aging0To30.Add(b.Aging0To30)
		t.Aging31To60 = t.Aging31To60.Add(b.Aging31To60)
		t.Aging60Plus = t.Aging60Plus.Add(b.Aging60Plus)
		t.TotalAmount = t.TotalAmount.Add(b.TotalAmount)
		t.PaidAmount = t.PaidAmount.Add(b.PaidAmount)
		t.Balance = t.Balance.Add(b.Balance)
	}
	return t
}
