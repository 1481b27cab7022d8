package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	taxapp "github.com/erp/gst/internal/application/tax"
	"github.com/erp/gst/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTaxRoutes(t *testing.T) {
	h := handler.NewTaxHandler(taxapp.NewTaxService(nil))

	assert.ElementsMatch(t, []Route{
		{Method: http.MethodPost, Path: "/tax/gst/calculate"},
		{Method: http.MethodPost, Path: "/tax/gst/override/validate"},
		{Method: http.MethodGet, Path: "/tax/gstin/:gstin"},
		{Method: http.MethodGet, Path: "/tax/states"},
		{Method: http.MethodPost, Path: "/tax/invoice-numbers"},
	}, TaxRoutes(h).Routes())
}

func TestSetup(t *testing.T) {
	engine := gin.New()
	Setup(engine,
		handler.NewTaxHandler(taxapp.NewTaxService(nil)),
		handler.NewSystemHandler("gst-service", "test"),
	)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/system/ping", http.StatusOK},
		{http.MethodGet, "/api/v1/system/info", http.StatusOK},
		{http.MethodGet, "/api/v1/tax/states", http.StatusOK},
		{http.MethodGet, "/api/v1/tax/gstin/27AAPFU0939F1ZV", http.StatusOK},
		{http.MethodPost, "/api/v1/tax/invoice-numbers", http.StatusCreated},
		{http.MethodGet, "/api/v1/tax/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
