package tax

import (
	"github.com/erp/gst/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// CalculateGSTRequest represents a request to compute GST for a transaction
type CalculateGSTRequest struct {
	BillToState     string           `json:"bill_to_state" binding:"required,max=100"`
	ShipToState     string           `json:"ship_to_state" binding:"required,max=100"`
	Subtotal        *decimal.Decimal `json:"subtotal" binding:"required,gte=0"`
	ShippingCharges *decimal.Decimal `json:"shipping_charges" binding:"omitempty,gte=0"`
	TaxRate         *decimal.Decimal `json:"tax_rate" binding:"required,gte=0,lte=50"`
}

// GSTBreakupResponse represents the tax components in API responses
type GSTBreakupResponse struct {
	CGST  decimal.Decimal  `json:"cgst"`
	SGST  decimal.Decimal  `json:"sgst"`
	IGST  decimal.Decimal  `json:"igst"`
	UTGST *decimal.Decimal `json:"utgst,omitempty"`
}

// GSTCalculationResponse represents a GST calculation in API responses
type GSTCalculationResponse struct {
	TransactionType string             `json:"transaction_type"`
	BillToState     string             `json:"bill_to_state"`
	ShipToState     string             `json:"ship_to_state"`
	ShipToIsUT      bool               `json:"ship_to_is_union_territory"`
	TaxableAmount   decimal.Decimal    `json:"taxable_amount"`
	TaxRate         decimal.Decimal    `json:"tax_rate"`
	GSTBreakup      GSTBreakupResponse `json:"gst_breakup"`
	TotalTax        decimal.Decimal    `json:"total_tax"`
	GrandTotal      decimal.Decimal    `json:"grand_total"`
}

// ValidateOverrideRequest represents a manually entered GST breakup to check.
// Either IsIntraState or both states must be provided; the states win when both are.
type ValidateOverrideRequest struct {
	CGST         *decimal.Decimal `json:"cgst" binding:"required"`
	SGST         *decimal.Decimal `json:"sgst" binding:"required"`
	IGST         *decimal.Decimal `json:"igst" binding:"required"`
	UTGST        *decimal.Decimal `json:"utgst"`
	Subtotal     *decimal.Decimal `json:"subtotal" binding:"required,gte=0"`
	IsIntraState *bool            `json:"is_intra_state"`
	BillToState  string           `json:"bill_to_state" binding:"required_with=ShipToState,max=100"`
	ShipToState  string           `json:"ship_to_state" binding:"required_with=BillToState,max=100"`
}

// OverrideValidationResponse represents the outcome of an override check
type OverrideValidationResponse struct {
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	IsIntraState bool     `json:"is_intra_state"`
}

// GSTINValidationResponse represents a GSTIN check in API responses
type GSTINValidationResponse struct {
	GSTIN        string `json:"gstin"`
	Valid        bool   `json:"valid"`
	StateCode    string `json:"state_code,omitempty"`
	StateName    string `json:"state_name,omitempty"`
	PAN          string `json:"pan,omitempty"`
	EntityNumber string `json:"entity_number,omitempty"`
}

// StateCodeResponse represents one row of the GST state code table
type StateCodeResponse struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	IsUnionTerritory bool   `json:"is_union_territory"`
}

// StatesResponse lists the places of supply the calculator accepts
type StatesResponse struct {
	States           []string            `json:"states"`
	UnionTerritories []string            `json:"union_territories"`
	StateCodes       []StateCodeResponse `json:"state_codes"`
}

// InvoiceNumberResponse represents a newly issued invoice number
type InvoiceNumberResponse struct {
	InvoiceNumber string `json:"invoice_number"`
	Attempts      int    `json:"attempts"`
}

// ToGSTCalculationResponse converts a domain result to a response DTO
func ToGSTCalculationResponse(tx tax.TaxableTransaction, result *tax.GSTCalculationResult) GSTCalculationResponse {
	billTo, _ := tax.CanonicalStateName(tx.BillToState)
	shipTo, _ := tax.CanonicalStateName(tx.ShipToState)

	return GSTCalculationResponse{
		TransactionType: string(result.TransactionType),
		BillToState:     billTo,
		ShipToState:     shipTo,
		ShipToIsUT:      tax.IsUnionTerritory(shipTo),
		TaxableAmount:   tx.TaxableAmount(),
		TaxRate:         tx.TaxRate,
		GSTBreakup: GSTBreakupResponse{
			CGST:  result.GSTBreakup.CGST,
			SGST:  result.GSTBreakup.SGST,
			IGST:  result.GSTBreakup.IGST,
			UTGST: result.GSTBreakup.UTGST,
		},
		TotalTax:   result.TotalTax,
		GrandTotal: result.GrandTotal,
	}
}

// ToGSTINValidationResponse converts a GSTIN check to a response DTO
func ToGSTINValidationResponse(gstin string) GSTINValidationResponse {
	parsed, err := tax.ParseGSTIN(gstin)
	if err != nil {
		return GSTINValidationResponse{GSTIN: gstin, Valid: false}
	}
	return GSTINValidationResponse{
		GSTIN:        parsed.Value,
		Valid:        true,
		StateCode:    parsed.StateCode,
		StateName:    parsed.StateName,
		PAN:          parsed.PAN,
		EntityNumber: parsed.EntityNumber,
	}
}
