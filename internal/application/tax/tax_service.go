// Package tax provides the GST application service used by the HTTP layer.
package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/gst/internal/domain/shared"
	"github.com/erp/gst/internal/domain/tax"
	"github.com/erp/gst/internal/infrastructure/logger"
	"github.com/erp/gst/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is how many invoice numbers are tried before giving up.
const DefaultMaxAttempts = 5

const serviceName = "TaxService"

// ErrInvoiceNumberExhausted is returned when every generated invoice number was already taken.
var ErrInvoiceNumberExhausted = shared.NewDomainError(shared.CodeConflict, "Could not allocate a unique invoice number, please retry")

// ErrOverrideTransactionType is returned when an override request does not settle the
// transaction type, either by omitting it or by naming only one of the two states.
var ErrOverrideTransactionType = shared.NewDomainError(shared.CodeInvalidInput,
	"Either is_intra_state or both bill_to_state and ship_to_state are required")

// TaxService handles GST calculations, GSTIN checks and invoice numbering
type TaxService struct {
	registry     tax.InvoiceNumberRegistry
	registryName string
	generator    *tax.InvoiceNumberGenerator
	metrics      *telemetry.TaxMetrics
	logger       *zap.Logger
	maxAttempts  int
}

// Option configures a TaxService
type Option func(*TaxService)

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *TaxService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.TaxMetrics) Option {
	return func(s *TaxService) {
		s.metrics = m
	}
}

// WithGenerator replaces the invoice number generator
func WithGenerator(g *tax.InvoiceNumberGenerator) Option {
	return func(s *TaxService) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithMaxAttempts bounds invoice number retries on collision
func WithMaxAttempts(n int) Option {
	return func(s *TaxService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRegistryName labels collision metrics with the registry backend
func WithRegistryName(name string) Option {
	return func(s *TaxService) {
		s.registryName = name
	}
}

// NewTaxService creates a new TaxService. registry may be nil, in which case
// invoice numbers are issued without a uniqueness check.
func NewTaxService(registry tax.InvoiceNumberRegistry, opts ...Option) *TaxService {
	s := &TaxService{
		registry:     registry,
		registryName: "memory",
		generator:    tax.NewInvoiceNumberGenerator(),
		logger:       zap.NewNop(),
		maxAttempts:  DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate computes the GST breakup for a transaction
func (s *TaxService) Calculate(ctx context.Context, req CalculateGSTRequest) (*GSTCalculationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Calculate",
		telemetry.WithAttribute(telemetry.SpanAttrBillToState, req.BillToState),
		telemetry.WithAttribute(telemetry.SpanAttrShipToState, req.ShipToState),
	)
	defer span.End()

	tx, err := tax.NewTaxableTransaction(
		req.BillToState,
		req.ShipToState,
		valueOrZero(req.Subtotal),
		valueOrZero(req.ShippingCharges),
		valueOrZero(req.TaxRate),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, err := tax.CalculateGST(tx)
	if err != nil {
		if errors.Is(err, tax.ErrInvalidStateName) {
			s.metrics.RecordInvalidState(ctx)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTransactionType, string(result.TransactionType),
		telemetry.SpanAttrTaxRate, tx.TaxRate.String(),
		telemetry.SpanAttrTotalTax, result.TotalTax.String(),
	)
	s.metrics.RecordCalculation(ctx, string(result.TransactionType), result.TotalTax)

	logger.WithLogger(ctx, s.logger).Debug("GST calculated",
		zap.String("transaction_type", string(result.TransactionType)),
		zap.String("taxable_amount", tx.TaxableAmount().String()),
		zap.String("total_tax", result.TotalTax.String()),
	)

	resp := ToGSTCalculationResponse(tx, result)
	return &resp, nil
}

// ValidateGSTIN checks the layout of a GSTIN and resolves its state
func (s *TaxService) ValidateGSTIN(ctx context.Context, gstin string) GSTINValidationResponse {
	resp := ToGSTINValidationResponse(gstin)
	if !resp.Valid {
		logger.WithLogger(ctx, s.logger).Debug("GSTIN rejected", zap.String("gstin", gstin))
	}
	return resp
}

// ValidateOverride checks a manually entered GST breakup
func (s *TaxService) ValidateOverride(ctx context.Context, req ValidateOverrideRequest) (*OverrideValidationResponse, error) {
	isIntraState, err := overrideTransactionType(req)
	if err != nil {
		return nil, err
	}

	breakup := tax.GSTBreakup{
		CGST:  valueOrZero(req.CGST),
		SGST:  valueOrZero(req.SGST),
		IGST:  valueOrZero(req.IGST),
		UTGST: req.UTGST,
	}
	result := tax.ValidateGSTOverride(breakup, valueOrZero(req.Subtotal), isIntraState)

	if !result.IsValid {
		s.metrics.RecordOverrideRejection(ctx, string(transactionType(isIntraState)))
		logger.WithLogger(ctx, s.logger).Info("GST override rejected",
			zap.Bool("is_intra_state", isIntraState),
			zap.Strings("errors", result.Errors),
		)
	}

	return &OverrideValidationResponse{
		IsValid:      result.IsValid,
		Errors:       result.Errors,
		IsIntraState: isIntraState,
	}, nil
}

// GenerateInvoiceNumber issues an invoice number that no other caller holds.
// Numbers already reserved are retried up to the configured attempt limit.
func (s *TaxService) GenerateInvoiceNumber(ctx context.Context) (*InvoiceNumberResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "GenerateInvoiceNumber")
	defer span.End()

	log := logger.WithLogger(ctx, s.logger)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		number := s.generator.Next()

		if s.registry == nil {
			return &InvoiceNumberResponse{InvoiceNumber: number, Attempts: attempt}, nil
		}

		ok, err := s.registry.Reserve(ctx, number)
		if err != nil {
			telemetry.RecordError(span, err)
			log.Error("Failed to reserve invoice number", zap.String("invoice_number", number), zap.Error(err))
			return nil, fmt.Errorf("%w: failed to reserve invoice number: %w", shared.ErrUnavailable, err)
		}
		if ok {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrInvoiceNumber, number,
				telemetry.SpanAttrAttempts, attempt,
			)
			log.Info("Invoice number issued", zap.String("invoice_number", number), zap.Int("attempts", attempt))
			return &InvoiceNumberResponse{InvoiceNumber: number, Attempts: attempt}, nil
		}

		s.metrics.RecordInvoiceNumberCollision(ctx, s.registryName)
		telemetry.AddEvent(span, "invoice_number.collision", telemetry.SpanAttrInvoiceNumber, number)
		log.Debug("Invoice number collision", zap.String("invoice_number", number), zap.Int("attempt", attempt))
	}

	log.Warn("Invoice number attempts exhausted", zap.Int("max_attempts", s.maxAttempts))
	telemetry.RecordError(span, ErrInvoiceNumberExhausted)
	return nil, ErrInvoiceNumberExhausted
}

// ListStates returns the accepted places of supply and the GST state code table
func (s *TaxService) ListStates(ctx context.Context) StatesResponse {
	table := tax.SortedStateCodes()
	rows := make([]StateCodeResponse, 0, len(table))
	for _, c := range table {
		rows = append(rows, StateCodeResponse{
			Code:             c.Code,
			Name:             c.Name,
			IsUnionTerritory: tax.IsUnionTerritory(c.Name),
		})
	}

	return StatesResponse{
		States:           append([]string(nil), tax.States...),
		UnionTerritories: append([]string(nil), tax.UnionTerritories...),
		StateCodes:       rows,
	}
}

func overrideTransactionType(req ValidateOverrideRequest) (bool, error) {
	if (req.BillToState == "") != (req.ShipToState == "") {
		return false, ErrOverrideTransactionType
	}
	if req.BillToState != "" {
		if err := tax.ValidateStates(req.BillToState, req.ShipToState); err != nil {
			return false, err
		}
		return tax.IsIntraState(req.BillToState, req.ShipToState), nil
	}
	if req.IsIntraState != nil {
		return *req.IsIntraState, nil
	}
	return false, ErrOverrideTransactionType
}

func transactionType(isIntraState bool) tax.TransactionType {
	if isIntraState {
		return tax.TransactionTypeIntraState
	}
	return tax.TransactionTypeInterState
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
