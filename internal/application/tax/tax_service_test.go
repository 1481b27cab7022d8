package tax

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/gst/internal/domain/shared"
	"github.com/erp/gst/internal/domain/tax"
	"github.com/erp/gst/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockInvoiceNumberRegistry is a mock implementation of tax.InvoiceNumberRegistry
type MockInvoiceNumberRegistry struct {
	mock.Mock
}

func (m *MockInvoiceNumberRegistry) Reserve(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceNumberRegistry) Close() error {
	args := m.Called()
	return args.Error(0)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func boolPtr(b bool) *bool {
	return &b
}

// sequenceGenerator returns a generator on a fixed date whose suffixes follow seq.
func sequenceGenerator(seq ...int) *tax.InvoiceNumberGenerator {
	i := 0
	return tax.NewInvoiceNumberGenerator(
		tax.WithClock(func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }),
		tax.WithRandom(func(int) int {
			v := seq[i%len(seq)]
			i++
			return v
		}),
	)
}

func newMetrics(t *testing.T) (*telemetry.TaxMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewTaxMetrics(telemetry.TaxMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)
	return m, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestTaxService_Calculate(t *testing.T) {
	ctx := context.Background()

	t.Run("intra-state transaction", func(t *testing.T) {
		svc := NewTaxService(nil)

		resp, err := svc.Calculate(ctx, CalculateGSTRequest{
			BillToState:     "maharashtra",
			ShipToState:     "Maharashtra ",
			Subtotal:        dec("100000"),
			ShippingCharges: dec("5000"),
			TaxRate:         dec("18"),
		})
		require.NoError(t, err)

		assert.Equal(t, "intra-state", resp.TransactionType)
		assert.Equal(t, "Maharashtra", resp.BillToState)
		assert.Equal(t, "Maharashtra", resp.ShipToState)
		assert.False(t, resp.ShipToIsUT)
		assert.True(t, decimal.NewFromInt(105000).Equal(resp.TaxableAmount))
		assert.True(t, decimal.NewFromInt(9450).Equal(resp.GSTBreakup.CGST))
		assert.True(t, decimal.NewFromInt(9450).Equal(resp.GSTBreakup.SGST))
		assert.True(t, resp.GSTBreakup.IGST.IsZero())
		assert.True(t, decimal.NewFromInt(18900).Equal(resp.TotalTax))
		assert.True(t, decimal.NewFromInt(123900).Equal(resp.GrandTotal))
	})

	t.Run("inter-state supply to a union territory", func(t *testing.T) {
		svc := NewTaxService(nil)

		resp, err := svc.Calculate(ctx, CalculateGSTRequest{
			BillToState: "Karnataka",
			ShipToState: "Delhi",
			Subtotal:    dec("1000"),
			TaxRate:     dec("12"),
		})
		require.NoError(t, err)

		assert.Equal(t, "inter-state", resp.TransactionType)
		assert.True(t, resp.ShipToIsUT)
		assert.True(t, decimal.NewFromInt(120).Equal(resp.GSTBreakup.IGST))
		assert.True(t, decimal.NewFromInt(1120).Equal(resp.GrandTotal))
	})

	t.Run("records calculation metrics", func(t *testing.T) {
		metrics, reader := newMetrics(t)
		svc := NewTaxService(nil, WithMetrics(metrics))

		_, err := svc.Calculate(ctx, CalculateGSTRequest{
			BillToState: "Goa", ShipToState: "Goa", Subtotal: dec("100"), TaxRate: dec("5"),
		})
		require.NoError(t, err)
		_, err = svc.Calculate(ctx, CalculateGSTRequest{
			BillToState: "Atlantis", ShipToState: "Goa", Subtotal: dec("100"), TaxRate: dec("5"),
		})
		require.Error(t, err)

		assert.Equal(t, int64(1), counterValue(t, reader, "gst_calculations_total"))
		assert.Equal(t, int64(1), counterValue(t, reader, "gst_invalid_state_total"))
	})

	t.Run("unknown state", func(t *testing.T) {
		svc := NewTaxService(nil)

		resp, err := svc.Calculate(ctx, CalculateGSTRequest{
			BillToState: "Atlantis", ShipToState: "Goa", Subtotal: dec("100"), TaxRate: dec("5"),
		})
		assert.Nil(t, resp)
		require.Error(t, err)

		var stateErr *tax.InvalidStateError
		require.True(t, errors.As(err, &stateErr))
		assert.Equal(t, "Atlantis", stateErr.State)
	})

	t.Run("rate above the ceiling", func(t *testing.T) {
		svc := NewTaxService(nil)

		_, err := svc.Calculate(ctx, CalculateGSTRequest{
			BillToState: "Goa", ShipToState: "Goa", Subtotal: dec("100"), TaxRate: dec("51"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestTaxService_ValidateGSTIN(t *testing.T) {
	svc := NewTaxService(nil)
	ctx := context.Background()

	t.Run("valid GSTIN resolves its state", func(t *testing.T) {
		resp := svc.ValidateGSTIN(ctx, "27AAPFU0939F1ZV")
		assert.True(t, resp.Valid)
		assert.Equal(t, "27", resp.StateCode)
		assert.Equal(t, "Maharashtra", resp.StateName)
		assert.Equal(t, "AAPFU0939F", resp.PAN)
	})

	t.Run("invalid GSTIN", func(t *testing.T) {
		resp := svc.ValidateGSTIN(ctx, "27aapfu0939f1zv")
		assert.False(t, resp.Valid)
		assert.Equal(t, "27aapfu0939f1zv", resp.GSTIN)
		assert.Empty(t, resp.StateCode)
		assert.Empty(t, resp.StateName)
	})
}

func TestTaxService_ValidateOverride(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		req       ValidateOverrideRequest
		valid     bool
		intra     bool
		errorMsgs []string
	}{
		{
			name: "consistent intra-state breakup",
			req: ValidateOverrideRequest{
				CGST: dec("90"), SGST: dec("90"), IGST: dec("0"), Subtotal: dec("1000"),
				IsIntraState: boolPtr(true),
			},
			valid: true,
			intra: true,
		},
		{
			name: "IGST on an intra-state transaction",
			req: ValidateOverrideRequest{
				CGST: dec("0"), SGST: dec("0"), IGST: dec("180"), Subtotal: dec("1000"),
				IsIntraState: boolPtr(true),
			},
			intra:     true,
			errorMsgs: []string{tax.MsgIGSTForIntraState, tax.MsgCGSTSGSTRequired},
		},
		{
			name: "transaction type derived from states",
			req: ValidateOverrideRequest{
				CGST: dec("90"), SGST: dec("90"), IGST: dec("0"), Subtotal: dec("1000"),
				BillToState: "Kerala", ShipToState: "Tamil Nadu",
			},
			intra:     false,
			errorMsgs: []string{tax.MsgCGSTSGSTForInterState, tax.MsgIGSTRequired},
		},
		{
			name: "states take precedence over the flag",
			req: ValidateOverrideRequest{
				CGST: dec("0"), SGST: dec("0"), IGST: dec("180"), Subtotal: dec("1000"),
				IsIntraState: boolPtr(true),
				BillToState:  "Kerala", ShipToState: "Goa",
			},
			valid: true,
			intra: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTaxService(nil)

			resp, err := svc.ValidateOverride(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, resp.IsValid)
			assert.Equal(t, tt.intra, resp.IsIntraState)
			if tt.valid {
				assert.Empty(t, resp.Errors)
			} else {
				assert.Equal(t, tt.errorMsgs, resp.Errors)
			}
		})
	}

	t.Run("rejections are counted", func(t *testing.T) {
		metrics, reader := newMetrics(t)
		svc := NewTaxService(nil, WithMetrics(metrics))

		_, err := svc.ValidateOverride(ctx, ValidateOverrideRequest{
			CGST: dec("-1"), SGST: dec("0"), IGST: dec("0"), Subtotal: dec("10"), IsIntraState: boolPtr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), counterValue(t, reader, "gst_override_rejections_total"))
	})

	t.Run("transaction type is required", func(t *testing.T) {
		incomplete := []struct {
			name string
			req  ValidateOverrideRequest
		}{
			{"nothing given", ValidateOverrideRequest{}},
			{"bill-to only", ValidateOverrideRequest{BillToState: "Kerala"}},
			{"ship-to only", ValidateOverrideRequest{ShipToState: "Kerala"}},
			{"bill-to only with flag", ValidateOverrideRequest{BillToState: "Kerala", IsIntraState: boolPtr(true)}},
			{"ship-to only with flag", ValidateOverrideRequest{ShipToState: "Goa", IsIntraState: boolPtr(false)}},
		}

		for _, tc := range incomplete {
			t.Run(tc.name, func(t *testing.T) {
				svc := NewTaxService(nil)
				req := tc.req
				req.CGST, req.SGST, req.IGST, req.Subtotal = dec("0"), dec("0"), dec("0"), dec("10")

				resp, err := svc.ValidateOverride(ctx, req)
				assert.Nil(t, resp)
				assert.ErrorIs(t, err, ErrOverrideTransactionType)
			})
		}
	})

	t.Run("unknown state", func(t *testing.T) {
		svc := NewTaxService(nil)

		_, err := svc.ValidateOverride(ctx, ValidateOverrideRequest{
			CGST: dec("0"), SGST: dec("0"), IGST: dec("0"), Subtotal: dec("10"),
			BillToState: "Goa", ShipToState: "Narnia",
		})
		assert.ErrorIs(t, err, tax.ErrInvalidStateName)
	})
}

func TestTaxService_GenerateInvoiceNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("first reservation wins", func(t *testing.T) {
		registry := new(MockInvoiceNumberRegistry)
		registry.On("Reserve", mock.Anything, "INV-20261018-1234").Return(true, nil).Once()

		svc := NewTaxService(registry, WithGenerator(sequenceGenerator(234)))

		resp, err := svc.GenerateInvoiceNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, "INV-20261018-1234", resp.InvoiceNumber)
		assert.Equal(t, 1, resp.Attempts)
		registry.AssertExpectations(t)
	})

	t.Run("retries after a collision", func(t *testing.T) {
		registry := new(MockInvoiceNumberRegistry)
		registry.On("Reserve", mock.Anything, "INV-20261018-1000").Return(false, nil).Once()
		registry.On("Reserve", mock.Anything, "INV-20261018-9999").Return(true, nil).Once()

		metrics, reader := newMetrics(t)
		svc := NewTaxService(registry,
			WithGenerator(sequenceGenerator(0, 8999)),
			WithMetrics(metrics),
			WithRegistryName("redis"),
		)

		resp, err := svc.GenerateInvoiceNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, "INV-20261018-9999", resp.InvoiceNumber)
		assert.Equal(t, 2, resp.Attempts)
		assert.Equal(t, int64(1), counterValue(t, reader, "gst_invoice_number_collisions_total"))
		registry.AssertExpectations(t)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		registry := new(MockInvoiceNumberRegistry)
		registry.On("Reserve", mock.Anything, "INV-20261018-5000").Return(false, nil).Times(3)

		core, logs := observer.New(zap.WarnLevel)
		svc := NewTaxService(registry,
			WithGenerator(sequenceGenerator(4000)),
			WithMaxAttempts(3),
			WithLogger(zap.New(core)),
		)

		resp, err := svc.GenerateInvoiceNumber(ctx)
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvoiceNumberExhausted)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Equal(t, 1, logs.FilterMessage("Invoice number attempts exhausted").Len())
		registry.AssertNumberOfCalls(t, "Reserve", 3)
	})

	t.Run("registry failure is returned", func(t *testing.T) {
		registry := new(MockInvoiceNumberRegistry)
		registry.On("Reserve", mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

		svc := NewTaxService(registry)

		resp, err := svc.GenerateInvoiceNumber(ctx)
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
		assert.False(t, errors.Is(err, shared.ErrConflict))
		assert.True(t, errors.Is(err, shared.ErrUnavailable))
	})

	t.Run("without a registry numbers are issued directly", func(t *testing.T) {
		svc := NewTaxService(nil)

		resp, err := svc.GenerateInvoiceNumber(ctx)
		require.NoError(t, err)
		assert.True(t, tax.IsInvoiceNumber(resp.InvoiceNumber))
		assert.Equal(t, 1, resp.Attempts)
	})

	t.Run("non-positive max attempts keeps the default", func(t *testing.T) {
		svc := NewTaxService(nil, WithMaxAttempts(0))
		assert.Equal(t, DefaultMaxAttempts, svc.maxAttempts)
	})
}

func TestTaxService_ListStates(t *testing.T) {
	svc := NewTaxService(nil)
	resp := svc.ListStates(context.Background())

	assert.Len(t, resp.States, 28)
	assert.Len(t, resp.UnionTerritories, 8)
	require.NotEmpty(t, resp.StateCodes)
	assert.Equal(t, "01", resp.StateCodes[0].Code)

	byCode := make(map[string]StateCodeResponse, len(resp.StateCodes))
	for _, row := range resp.StateCodes {
		byCode[row.Code] = row
	}
	assert.Equal(t, "Maharashtra", byCode["27"].Name)
	assert.False(t, byCode["27"].IsUnionTerritory)
	assert.True(t, byCode["07"].IsUnionTerritory, "Delhi is a union territory")

	t.Run("returned slices are copies", func(t *testing.T) {
		resp.States[0] = "Mutated"
		assert.NotEqual(t, "Mutated", tax.States[0])
	})
}
