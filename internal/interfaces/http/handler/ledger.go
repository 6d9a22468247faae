package handler

import (
	"context"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the application service behind LedgerHandler
type LedgerService interface {
	CreateTransaction(ctx context.Context, input ledgerapp.CreateTransactionInput) (*ledger.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	UpdatePricing(ctx context.Context, id uuid.UUID, input ledgerapp.PricingInput) (*ledger.Transaction, error)
	AddPayment(ctx context.Context, id uuid.UUID, input ledgerapp.PaymentInput) (*ledger.Transaction, error)
	RemovePayment(ctx context.Context, id, paymentID uuid.UUID) (*ledger.Transaction, error)
	OverrideStatus(ctx context.Context, id uuid.UUID, status string) (*ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	AgingReport(ctx context.Context, input ledgerapp.AgingReportInput) (*ledgerapp.AgingReport, error)
	IssueDocumentNumber(ctx context.Context, docType string, referenceDate *time.Time) (string, error)
}

// LedgerHandler handles transaction, payment, numbering and aging endpoints
type LedgerHandler struct {
	BaseHandler
	service LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes mounts the ledger endpoints under rg
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tx := rg.Group("/transactions")
	tx.POST("", h.CreateTransaction)
	tx.GET("/:id", h.GetTransaction)
	tx.DELETE("/:id", h.DeleteTransaction)
	tx.PUT("/:id/pricing", h.UpdatePricing)
	tx.PUT("/:id/status", h.OverrideStatus)
	tx.POST("/:id/payments", h.AddPayment)
	tx.DELETE("/:id/payments/:paymentId", h.RemovePayment)

	rg.GET("/reports/aging", h.AgingReport)
	rg.POST("/document-numbers", h.IssueDocumentNumber)
}

// CreateTransaction handles POST /transactions
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	transactionDate, err := parseDate("transaction_date", req.TransactionDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tx, err := h.service.CreateTransaction(c.Request.Context(), ledgerapp.CreateTransactionInput{
		Kind:             req.Kind,
		CounterpartyID:   uuid.MustParse(req.CounterpartyID),
		CounterpartyName: req.CounterpartyName,
		TransactionDate:  transactionDate,
		DueDate:          dueDate,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		TaxRatePercent:   req.TaxRatePercent,
		Remark:           req.Remark,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTransactionResponse(tx))
}

// GetTransaction handles GET /transactions/:id
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// DeleteTransaction handles DELETE /transactions/:id
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UpdatePricing handles PUT /transactions/:id/pricing
func (h *LedgerHandler) UpdatePricing(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.service.UpdatePricing(c.Request.Context(), id, ledgerapp.PricingInput{
		Quantity:       req.Quantity,
		UnitPrice:      req.UnitPrice,
		TaxRatePercent: req.TaxRatePercent,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// OverrideStatus handles PUT /transactions/:id/status
func (h *LedgerHandler) OverrideStatus(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tx, err := h.service.OverrideStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// AddPayment handles POST /transactions/:id/payments
func (h *LedgerHandler) AddPayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	paymentDate, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tx, err := h.service.AddPayment(c.Request.Context(), id, ledgerapp.PaymentInput{
		Amount:      req.Amount,
		PaymentDate: paymentDate,
		Method:      req.Method,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTransactionResponse(tx))
}

// RemovePayment handles DELETE /transactions/:id/payments/:paymentId
func (h *LedgerHandler) RemovePayment(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.parseUUIDParam(c, "paymentId")
	if !ok {
		return
	}

	tx, err := h.service.RemovePayment(c.Request.Context(), id, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// AgingReport handles GET /reports/aging
func (h *LedgerHandler) AgingReport(c *gin.Context) {
	var q AgingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	input := ledgerapp.AgingReportInput{Kind: q.Kind, SortBy: q.Sort}
	if q.AsOf != "" {
		asOf, err := parseDate("as_of", q.AsOf)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		input.AsOf = asOf
	}
	if q.Order != "" {
		descending := q.Order == "desc"
		input.Descending = &descending
	}

	report, err := h.service.AgingReport(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// IssueDocumentNumber handles POST /document-numbers
func (h *LedgerHandler) IssueDocumentNumber(c *gin.Context) {
	var req DocumentNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	referenceDate, err := parseOptionalDate("reference_date", req.ReferenceDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	number, err := h.service.IssueDocumentNumber(c.Request.Context(), req.DocumentType, referenceDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, DocumentNumberResponse{DocumentNumber: number})
}
