// Package numbering issues sequential, period-scoped document numbers
// such as PO-202501-0001.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
)

// DocumentType is the leading code of a document number
type DocumentType string

const (
	DocumentTypePurchaseOrder DocumentType = "PO"
	DocumentTypeSalesOrder    DocumentType = "SO"
)

// IsValid checks if the document type is one the generator issues
func (t DocumentType) IsValid() bool {
	return t == DocumentTypePurchaseOrder || t == DocumentTypeSalesOrder
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// MaxSequence is the largest sequence number the four-digit wire format can carry
const MaxSequence = 9999

// ErrCounterContention is returned by a CounterStore when an increment lost a
// transient race and may succeed if retried.
var ErrCounterContention = errors.New("numbering: counter contention")

// Domain errors
var (
	ErrInvalidReferenceDate = shared.NewDomainError("INVALID_REFERENCE_DATE", "Reference date is required to issue a document number")
	ErrInvalidDocumentType  = shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be PO or SO")
	ErrSequenceExhausted    = shared.NewDomainError("SEQUENCE_EXHAUSTED", "Document sequence exhausted for period")
	ErrInvalidDocumentNo    = shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number is malformed")
)

// CounterStore is a durable, atomic counter keyed by prefix.
// IncrementAndGet creates the counter at zero when absent, adds one and returns the result.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, prefix string) (int64, error)
}

// Generator issues document numbers from a CounterStore
type Generator struct {
	store      CounterStore
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Generator
type Option func(*Generator)

// WithMaxRetries sets how many attempts are made on contention (minimum 1)
func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n < 1 {
			n = 1
		}
		g.maxRetries = n
	}
}

// WithRetryDelay sets the linear backoff step between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d < 0 {
			d = 0
		}
		g.retryDelay = d
	}
}

// NewGenerator creates a generator over store
func NewGenerator(store CounterStore, opts ...Option) *Generator {
	g := &Generator{
		store:      store,
		maxRetries: 5,
		retryDelay: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Prefix returns the counter key for a document type and period, e.g. "PO-202501"
func Prefix(docType DocumentType, referenceDate time.Time) string {
	return fmt.Sprintf("%s-%s", docType, referenceDate.Format("200601"))
}

// Generate issues the next number for docType in the month of referenceDate.
// Validation happens before the store is touched, so a rejected request consumes no sequence value.
func (g *Generator) Generate(ctx context.Context, docType DocumentType, referenceDate *time.Time) (string, error) {
	if referenceDate == nil || referenceDate.IsZero() {
		return "", ErrInvalidReferenceDate
	}
	if y := referenceDate.Year(); y < 0 || y > 9999 {
		return "", shared.NewDomainError(ErrInvalidReferenceDate.Code,
			fmt.Sprintf("Reference date year %d is outside 0000-9999", y))
	}
	if !docType.IsValid() {
		return "", shared.NewDomainError(ErrInvalidDocumentType.Code,
			fmt.Sprintf("Invalid document type %q: must be PO or SO", docType))
	}

	prefix := Prefix(docType, *referenceDate)
	seq, err := g.increment(ctx, prefix)
	if err != nil {
		return "", err
	}
	if seq > MaxSequence {
		return "", shared.NewDomainError(ErrSequenceExhausted.Code,
			fmt.Sprintf("Sequence for %s exceeded %d", prefix, MaxSequence))
	}

	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

func (g *Generator) increment(ctx context.Context, prefix string) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		seq, err := g.store.IncrementAndGet(ctx, prefix)
		if err == nil {
			return seq, nil
		}
		if !errors.Is(err, ErrCounterContention) {
			return 0, fmt.Errorf("increment counter %s: %w", prefix, err)
		}
		lastErr = err

		if attempt == g.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * g.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	return 0, fmt.Errorf("increment counter %s after %d attempts: %w", prefix, g.maxRetries, lastErr)
}

var documentNumberPattern = regexp.MustCompile(`^(PO|SO)-(\d{4})(\d{2})-(\d{4})$`)

// DocumentNumber is a parsed document number
type DocumentNumber struct {
	Type     DocumentType `json:"type"`
	Year     int          `json:"year"`
	Month    time.Month   `json:"month"`
	Sequence int          `json:"sequence"`
}

// Prefix returns the counter key the number was issued under
func (n DocumentNumber) Prefix() string {
	return fmt.Sprintf("%s-%04d%02d", n.Type, n.Year, int(n.Month))
}

// String formats the number in wire format
func (n DocumentNumber) String() string {
	return fmt.Sprintf("%s-%04d", n.Prefix(), n.Sequence)
}

// ParseDocumentNumber parses a number in the form TYPE-YYYYMM-NNNN
func ParseDocumentNumber(s string) (DocumentNumber, error) {
	m := documentNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return DocumentNumber{}, shared.NewDomainError(ErrInvalidDocumentNo.Code,
			fmt.Sprintf("Malformed document number %q", s))
	}
	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	seq, _ := strconv.Atoi(m[4])
	if month < 1 || month > 12 || seq == 0 {
		return DocumentNumber{}, shared.NewDomainError(ErrInvalidDocumentNo.Code,
			fmt.Sprintf("Malformed document number %q", s))
	}
	return DocumentNumber{
		Type:     DocumentType(m[1]),
		Year:     year,
		Month:    time.Month(month),
		Sequence: seq,
	}, nil
}
