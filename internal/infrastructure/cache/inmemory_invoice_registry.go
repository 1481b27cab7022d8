package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/gst/internal/domain/tax"
)

const cleanupInterval = 5 * time.Minute

// reservation is a reserved invoice number with its expiry
type reservation struct {
	expiresAt time.Time
}

// InMemoryInvoiceNumberRegistry implements tax.InvoiceNumberRegistry using an in-memory map.
// Reservations are local to the process, so it only guarantees uniqueness for a single instance.
type InMemoryInvoiceNumberRegistry struct {
	mu        sync.RWMutex
	entries   map[string]reservation
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryInvoiceNumberRegistry creates a registry whose reservations expire after ttl.
// A background goroutine evicts expired reservations until Close is called.
func NewInMemoryInvoiceNumberRegistry(ttl time.Duration) *InMemoryInvoiceNumberRegistry {
	if ttl <= 0 {
		ttl = tax.DefaultReservationTTL
	}
	r := &InMemoryInvoiceNumberRegistry{
		entries:  make(map[string]reservation),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Reserve claims number. It returns false if the number is already reserved and not expired.
func (r *InMemoryInvoiceNumberRegistry) Reserve(ctx context.Context, number string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, exists := r.entries[number]; exists && now.Before(e.expiresAt) {
		return false, nil
	}

	r.entries[number] = reservation{expiresAt: now.Add(r.ttl)}
	return true, nil
}

// IsReserved reports whether number currently holds an unexpired reservation.
func (r *InMemoryInvoiceNumberRegistry) IsReserved(ctx context.Context, number string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[number]
	if !exists {
		return false, nil
	}
	return r.now().Before(e.expiresAt), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (r *InMemoryInvoiceNumberRegistry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
	})
	return nil
}

func (r *InMemoryInvoiceNumberRegistry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *InMemoryInvoiceNumberRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for number, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, number)
		}
	}
}

// Size returns the number of entries held, expired or not (for testing/monitoring)
func (r *InMemoryInvoiceNumberRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var _ tax.InvoiceNumberRegistry = (*InMemoryInvoiceNumberRegistry)(nil)
