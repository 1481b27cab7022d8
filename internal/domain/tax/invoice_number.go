package tax

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

const (
	invoiceNumberPrefix = "INV"
	invoiceSuffixMin    = 1000
	invoiceSuffixMax    = 9999
)

// DefaultReservationTTL is how long an issued number stays reserved when no TTL
// is configured. Numbers embed the issue date, so a reservation must outlive that day.
const DefaultReservationTTL = 48 * time.Hour

var invoiceNumberPattern = regexp.MustCompile(`^INV-[0-9]{8}-[1-9][0-9]{3}$`)

// InvoiceNumberGenerator produces INV-YYYYMMDD-NNNN numbers. The suffix is
// random, so two calls on the same day can collide; uniqueness is enforced by
// an InvoiceNumberRegistry.
type InvoiceNumberGenerator struct {
	now  func() time.Time
	intN func(n int) int
}

// InvoiceNumberOption configures an InvoiceNumberGenerator.
type InvoiceNumberOption func(*InvoiceNumberGenerator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) InvoiceNumberOption {
	return func(g *InvoiceNumberGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRandom overrides the random source. intN must return a value in [0, n).
func WithRandom(intN func(n int) int) InvoiceNumberOption {
	return func(g *InvoiceNumberGenerator) {
		if intN != nil {
			g.intN = intN
		}
	}
}

// NewInvoiceNumberGenerator creates a generator using the wall clock and
// math/rand/v2 unless overridden.
func NewInvoiceNumberGenerator(opts ...InvoiceNumberOption) *InvoiceNumberGenerator {
	g := &InvoiceNumberGenerator{
		now:  time.Now,
		intN: rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a new invoice number for the current date.
func (g *InvoiceNumberGenerator) Next() string {
	suffix := invoiceSuffixMin + g.intN(invoiceSuffixMax-invoiceSuffixMin+1)
	return fmt.Sprintf("%s-%s-%d", invoiceNumberPrefix, g.now().Format("20060102"), suffix)
}

// GenerateInvoiceNumber returns an invoice number for today with a random
// four-digit suffix.
func GenerateInvoiceNumber() string {
	return NewInvoiceNumberGenerator().Next()
}

// IsInvoiceNumber reports whether s has the INV-YYYYMMDD-NNNN layout.
func IsInvoiceNumber(s string) bool {
	return invoiceNumberPattern.MatchString(s)
}

// InvoiceNumberRegistry records issued invoice numbers so a collision can be
// detected and retried.
type InvoiceNumberRegistry interface {
	// Reserve claims number. It returns false when the number is already taken.
	Reserve(ctx context.Context, number string) (bool, error)

	// Close releases resources held by the registry.
	Close() error
}
