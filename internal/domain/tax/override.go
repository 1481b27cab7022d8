package tax

import "github.com/shopspring/decimal"

// Messages reported by ValidateGSTOverride.
const (
	MsgNegativeAmount        = "GST amounts cannot be negative"
	MsgExceedsCeiling        = "Total GST cannot exceed 50% of subtotal"
	MsgIGSTForIntraState     = "IGST should be zero for intra-state transactions"
	MsgCGSTSGSTRequired      = "CGST and SGST are required for intra-state transactions"
	MsgCGSTSGSTForInterState = "CGST and SGST should be zero for inter-state transactions"
	MsgIGSTRequired          = "IGST is required for inter-state transactions"
)

// overrideCeiling caps total GST at this fraction of the subtotal.
var overrideCeiling = decimal.NewFromFloat(0.5)

// OverrideValidation is the outcome of checking a manually entered breakup.
type OverrideValidation struct {
	IsValid bool
	Errors  []string
}

// ValidateGSTOverride checks a caller-supplied breakup for consistency with
// the transaction type. Every rule is evaluated; the result lists all
// violations rather than the first one.
func ValidateGSTOverride(breakup GSTBreakup, subtotal decimal.Decimal, isIntraState bool) OverrideValidation {
	errs := make([]string, 0)
	totalGST := breakup.Total()

	if breakup.CGST.IsNegative() || breakup.SGST.IsNegative() || breakup.IGST.IsNegative() {
		errs = append(errs, MsgNegativeAmount)
	}

	if totalGST.GreaterThan(subtotal.Mul(overrideCeiling)) {
		errs = append(errs, MsgExceedsCeiling)
	}

	if isIntraState {
		if breakup.IGST.IsPositive() {
			errs = append(errs, MsgIGSTForIntraState)
		}
		if breakup.CGST.IsZero() && breakup.SGST.IsZero() && totalGST.IsPositive() {
			errs = append(errs, MsgCGSTSGSTRequired)
		}
	} else {
		if breakup.CGST.IsPositive() || breakup.SGST.IsPositive() {
			errs = append(errs, MsgCGSTSGSTForInterState)
		}
		if breakup.IGST.IsZero() && totalGST.IsPositive() {
			errs = append(errs, MsgIGSTRequired)
		}
	}

	return OverrideValidation{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
