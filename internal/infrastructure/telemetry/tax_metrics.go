package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// TaxMetrics records GST calculation activity. A nil *TaxMetrics is valid and
// records nothing.
type TaxMetrics struct {
	logger *zap.Logger

	calculationsTotal      *Counter
	invalidStateTotal      *Counter
	overrideRejections     *Counter
	invoiceCollisionsTotal *Counter
	taxAmount              *Histogram
}

// TaxMetricsConfig holds configuration for tax metrics.
type TaxMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewTaxMetrics registers the GST instruments on cfg.Meter.
func NewTaxMetrics(cfg TaxMetricsConfig) (*TaxMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaxMetrics{logger: logger}

	var err error
	tm.calculationsTotal, err = NewCounter(
		cfg.Meter,
		"gst_calculations_total",
		"Total number of GST calculations",
		"{calculations}",
	)
	if err != nil {
		return nil, err
	}

	tm.invalidStateTotal, err = NewCounter(
		cfg.Meter,
		"gst_invalid_state_total",
		"Calculations rejected for an unknown state or union territory",
		"{calculations}",
	)
	if err != nil {
		return nil, err
	}

	tm.overrideRejections, err = NewCounter(
		cfg.Meter,
		"gst_override_rejections_total",
		"Manual GST overrides that failed validation",
		"{overrides}",
	)
	if err != nil {
		return nil, err
	}

	tm.invoiceCollisionsTotal, err = NewCounter(
		cfg.Meter,
		"gst_invoice_number_collisions_total",
		"Generated invoice numbers that were already reserved",
		"{collisions}",
	)
	if err != nil {
		return nil, err
	}

	tm.taxAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "gst_tax_amount",
		Description: "Total GST per calculation",
		Unit:        "INR",
		Boundaries:  TaxAmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	return tm, nil
}

// RecordCalculation counts a successful calculation and its total tax.
func (tm *TaxMetrics) RecordCalculation(ctx context.Context, transactionType string, totalTax decimal.Decimal) {
	if tm == nil {
		return
	}
	attr := AttrTransactionType.String(transactionType)
	tm.calculationsTotal.Inc(ctx, attr)
	tm.taxAmount.Record(ctx, totalTax.InexactFloat64(), attr)
}

// RecordInvalidState counts a calculation rejected for an unknown state.
func (tm *TaxMetrics) RecordInvalidState(ctx context.Context) {
	if tm == nil {
		return
	}
	tm.invalidStateTotal.Inc(ctx)
}

// RecordOverrideRejection counts an override with at least one violation.
func (tm *TaxMetrics) RecordOverrideRejection(ctx context.Context, transactionType string) {
	if tm == nil {
		return
	}
	tm.overrideRejections.Inc(ctx, AttrTransactionType.String(transactionType))
}

// RecordInvoiceNumberCollision counts an invoice number that was already taken.
func (tm *TaxMetrics) RecordInvoiceNumberCollision(ctx context.Context, registry string) {
	if tm == nil {
		return
	}
	tm.invoiceCollisionsTotal.Inc(ctx, AttrRegistry.String(registry))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewTaxMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
