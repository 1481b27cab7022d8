package handler

import (
	"context"

	taxapp "github.com/erp/gst/internal/application/tax"
	"github.com/gin-gonic/gin"
)

// TaxService is the application service behind TaxHandler
type TaxService interface {
	Calculate(ctx context.Context, req taxapp.CalculateGSTRequest) (*taxapp.GSTCalculationResponse, error)
	ValidateGSTIN(ctx context.Context, gstin string) taxapp.GSTINValidationResponse
	ValidateOverride(ctx context.Context, req taxapp.ValidateOverrideRequest) (*taxapp.OverrideValidationResponse, error)
	GenerateInvoiceNumber(ctx context.Context) (*taxapp.InvoiceNumberResponse, error)
	ListStates(ctx context.Context) taxapp.StatesResponse
}

// TaxHandler handles GST calculation, validation and invoice numbering endpoints
type TaxHandler struct {
	BaseHandler
	service TaxService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(service TaxService) *TaxHandler {
	return &TaxHandler{service: service}
}

// Calculate godoc
// @ID           calculateGST
// @Summary      Calculate GST
// @Description  Splits GST into CGST+SGST for intra-state supplies and IGST for inter-state supplies
// @Tags         tax
// @Accept       json
// @Produce      json
// @Param        request body taxapp.CalculateGSTRequest true "Transaction"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /tax/gst/calculate [post]
func (h *TaxHandler) Calculate(c *gin.Context) {
	var req taxapp.CalculateGSTRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Calculate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ValidateOverride godoc
// @ID           validateGSTOverride
// @Summary      Validate a manual GST breakup
// @Description  Checks that an overridden breakup uses the components allowed for the transaction type
// @Tags         tax
// @Accept       json
// @Produce      json
// @Param        request body taxapp.ValidateOverrideRequest true "Override"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /tax/gst/override/validate [post]
func (h *TaxHandler) ValidateOverride(c *gin.Context) {
	var req taxapp.ValidateOverrideRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.ValidateOverride(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ValidateGSTIN godoc
// @ID           validateGSTIN
// @Summary      Validate a GSTIN
// @Description  Checks the GSTIN layout and resolves the registering state. Invalid GSTINs return valid=false, not an error.
// @Tags         tax
// @Produce      json
// @Param        gstin path string true "GSTIN"
// @Success      200 {object} dto.Response
// @Router       /tax/gstin/{gstin} [get]
func (h *TaxHandler) ValidateGSTIN(c *gin.Context) {
	h.Success(c, h.service.ValidateGSTIN(c.Request.Context(), c.Param("gstin")))
}

// ListStates godoc
// @ID           listStates
// @Summary      List places of supply
// @Tags         tax
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /tax/states [get]
func (h *TaxHandler) ListStates(c *gin.Context) {
	h.Success(c, h.service.ListStates(c.Request.Context()))
}

// GenerateInvoiceNumber godoc
// @ID           generateInvoiceNumber
// @Summary      Issue an invoice number
// @Description  Returns a new INV-YYYYMMDD-NNNN number that has not been issued within the reservation window
// @Tags         tax
// @Produce      json
// @Success      201 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /tax/invoice-numbers [post]
func (h *TaxHandler) GenerateInvoiceNumber(c *gin.Context) {
	resp, err := h.service.GenerateInvoiceNumber(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}
