package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/gst/internal/domain/tax"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceNumberReservation is a row claiming one invoice number until ExpiresAt.
type InvoiceNumberReservation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Number     string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_invoice_number_reservations_number"`
	ReservedAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceNumberReservation) TableName() string {
	return "invoice_number_reservations"
}

// GormInvoiceNumberRegistry implements tax.InvoiceNumberRegistry on a SQL table.
// The unique index on number makes a reservation atomic across instances.
type GormInvoiceNumberRegistry struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGormInvoiceNumberRegistry creates a registry whose reservations expire after ttl.
func NewGormInvoiceNumberRegistry(db *gorm.DB, ttl time.Duration) *GormInvoiceNumberRegistry {
	if ttl <= 0 {
		ttl = tax.DefaultReservationTTL
	}
	return &GormInvoiceNumberRegistry{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Reserve inserts a reservation for number. An existing unexpired reservation
// leaves the row untouched and Reserve returns false; an expired one is taken over.
func (r *GormInvoiceNumberRegistry) Reserve(ctx context.Context, number string) (bool, error) {
	now := r.now()
	row := InvoiceNumberReservation{
		ID:         uuid.New(),
		Number:     number,
		ReservedAt: now,
		ExpiresAt:  now.Add(r.ttl),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "number"}},
			DoUpdates: clause.AssignmentColumns([]string{"reserved_at", "expires_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "invoice_number_reservations.expires_at <= ?", Vars: []any{now}},
			}},
		}).
		Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve invoice number: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IsReserved reports whether number holds an unexpired reservation.
func (r *GormInvoiceNumberRegistry) IsReserved(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&InvoiceNumberReservation{}).
		Where("number = ? AND expires_at > ?", number, r.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired deletes expired reservations and returns how many were removed.
func (r *GormInvoiceNumberRegistry) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", r.now()).
		Delete(&InvoiceNumberReservation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired reservations: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close is a no-op; the connection is owned by Database.
func (r *GormInvoiceNumberRegistry) Close() error {
	return nil
}

var _ tax.InvoiceNumberRegistry = (*GormInvoiceNumberRegistry)(nil)
