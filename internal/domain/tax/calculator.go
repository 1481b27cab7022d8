// Package tax implements Indian GST computation: place-of-supply
// classification, CGST/SGST/IGST splitting, GSTIN format checks and
// validation of manually entered tax breakdowns.
//
// Everything in this package is a pure function over its inputs and is safe
// for concurrent use.
package tax

import (
	"fmt"

	"github.com/erp/gst/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaxTaxRate is the highest accepted GST rate, in percent.
const MaxTaxRate = 50

// amountPlaces is the precision of every tax component (paise).
const amountPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// TransactionType classifies a supply by place of supply.
type TransactionType string

const (
	TransactionTypeIntraState TransactionType = "intra-state"
	TransactionTypeInterState TransactionType = "inter-state"
)

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIntraState || t == TransactionTypeInterState
}

// TaxableTransaction is the input of a GST calculation.
type TaxableTransaction struct {
	BillToState     string
	ShipToState     string
	Subtotal        decimal.Decimal
	ShippingCharges decimal.Decimal
	TaxRate         decimal.Decimal // percent, 0-50
}

// NewTaxableTransaction validates the numeric ranges of a transaction. State
// names are checked later by CalculateGST so the error names the state.
func NewTaxableTransaction(billToState, shipToState string, subtotal, shippingCharges, taxRate decimal.Decimal) (TaxableTransaction, error) {
	if subtotal.IsNegative() {
		return TaxableTransaction{}, shared.NewDomainError(shared.CodeInvalidInput, "Subtotal cannot be negative")
	}
	if shippingCharges.IsNegative() {
		return TaxableTransaction{}, shared.NewDomainError(shared.CodeInvalidInput, "Shipping charges cannot be negative")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(MaxTaxRate)) {
		return TaxableTransaction{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Tax rate must be between 0 and %d", MaxTaxRate))
	}
	return TaxableTransaction{
		BillToState:     billToState,
		ShipToState:     shipToState,
		Subtotal:        subtotal,
		ShippingCharges: shippingCharges,
		TaxRate:         taxRate,
	}, nil
}

// TaxableAmount is the subtotal plus shipping charges.
func (t TaxableTransaction) TaxableAmount() decimal.Decimal {
	return t.Subtotal.Add(t.ShippingCharges)
}

// GSTBreakup holds the tax components of a transaction. UTGST is nil unless
// supplied by the caller (CalculateGST never sets it).
type GSTBreakup struct {
	CGST  decimal.Decimal
	SGST  decimal.Decimal
	IGST  decimal.Decimal
	UTGST *decimal.Decimal
}

// Total sums all components, counting a missing UTGST as zero.
func (b GSTBreakup) Total() decimal.Decimal {
	total := b.CGST.Add(b.SGST).Add(b.IGST)
	if b.UTGST != nil {
		total = total.Add(*b.UTGST)
	}
	return total
}

// GSTCalculationResult is the output of CalculateGST.
type GSTCalculationResult struct {
	TransactionType TransactionType
	GSTBreakup      GSTBreakup
	TotalTax        decimal.Decimal
	GrandTotal      decimal.Decimal
}

// CalculateGST computes the GST breakup of tx.
//
// Intra-state tax is halved into CGST and SGST and each half is rounded on its
// own, so CGST+SGST can differ from the unrounded total by one paisa.
func CalculateGST(tx TaxableTransaction) (*GSTCalculationResult, error) {
	if err := ValidateStates(tx.BillToState, tx.ShipToState); err != nil {
		return nil, err
	}

	taxableAmount := tx.TaxableAmount()
	totalTaxAmount := taxableAmount.Mul(tx.TaxRate).Div(hundred)

	var (
		breakup GSTBreakup
		txType  TransactionType
	)
	if IsIntraState(tx.BillToState, tx.ShipToState) {
		txType = TransactionTypeIntraState
		half := totalTaxAmount.Div(two)
		breakup = GSTBreakup{
			CGST: roundAmount(half),
			SGST: roundAmount(half),
			IGST: decimal.Zero,
		}
	} else {
		txType = TransactionTypeInterState
		breakup = GSTBreakup{
			CGST: decimal.Zero,
			SGST: decimal.Zero,
			IGST: roundAmount(totalTaxAmount),
		}
	}

	totalTax := breakup.Total()
	return &GSTCalculationResult{
		TransactionType: txType,
		GSTBreakup:      breakup,
		TotalTax:        totalTax,
		GrandTotal:      taxableAmount.Add(totalTax),
	}, nil
}

// roundAmount rounds half away from zero, which is half-up for the
// non-negative amounts handled here.
func roundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(amountPlaces)
}
