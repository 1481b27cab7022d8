package router

import (
	"github.com/erp/gst/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// TaxRoutes builds the /tax route group
func TaxRoutes(h *handler.TaxHandler) *DomainGroup {
	tax := NewDomainGroup("tax", "/tax")

	gst := tax.Group("gst", "/gst")
	gst.POST("/calculate", h.Calculate)
	gst.POST("/override/validate", h.ValidateOverride)

	tax.GET("/gstin/:gstin", h.ValidateGSTIN)
	tax.GET("/states", h.ListStates)
	tax.POST("/invoice-numbers", h.GenerateInvoiceNumber)

	return tax
}

// SystemRoutes builds the /system route group
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/ping", h.Ping).
		GET("/info", h.GetSystemInfo)
}

// Setup registers /health at the root and the versioned API groups
func Setup(engine *gin.Engine, taxHandler *handler.TaxHandler, systemHandler *handler.SystemHandler) *Router {
	engine.GET("/health", systemHandler.Health)

	r := NewRouter(engine).
		Register(TaxRoutes(taxHandler)).
		Register(SystemRoutes(systemHandler))
	r.Setup()
	return r
}
