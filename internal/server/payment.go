package server

import (
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/fieldhive/opsledger/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     *time.Time      `json:"payment_date"`
	Method          string          `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// @Summary      Record Payment
// @Description  Record a payment against an invoice; totals recalculate after commit
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Invoice ID"
// @Param        request  body  createPaymentRequest  true  "Create Payment Request"
// @Success      200  {object}  paymentdomain.Payment
// @Router       /v1/invoices/{id}/payments [post]
func (s *Server) CreatePayment(c *gin.Context) {
	orgID, err := orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreateRequest{
		OrgID:           orgID,
		InvoiceID:       invoiceID,
		Amount:          req.Amount,
		PaymentDate:     req.PaymentDate,
		Method:          strings.TrimSpace(req.Method),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePaymentRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	PaymentDate     *time.Time       `json:"payment_date"`
	Method          *string          `json:"method"`
	ReferenceNumber *string          `json:"reference_number"`
	Notes           *string          `json:"notes"`
}

// @Summary      Update Payment
// @Description  Merge supplied fields into a payment; totals recalculate after commit
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id         path  string                true  "Invoice ID"
// @Param        paymentID  path  string                true  "Payment ID"
// @Param        request    body  updatePaymentRequest  true  "Update Payment Request"
// @Success      200  {object}  paymentdomain.Payment
// @Router       /v1/invoices/{id}/payments/{paymentID} [patch]
func (s *Server) UpdatePayment(c *gin.Context) {
	orgID, err := orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	paymentID, err := pathID(c, "paymentID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Update(c.Request.Context(), paymentdomain.UpdateRequest{
		OrgID:           orgID,
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		Amount:          req.Amount,
		PaymentDate:     req.PaymentDate,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Payment
// @Description  Soft-delete a payment; totals recalculate after commit
// @Tags         payments
// @Produce      json
// @Param        id         path  string  true  "Invoice ID"
// @Param        paymentID  path  string  true  "Payment ID"
// @Success      200  {object}  map[string]string
// @Router       /v1/invoices/{id}/payments/{paymentID} [delete]
func (s *Server) DeletePayment(c *gin.Context) {
	orgID, err := orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	paymentID, err := pathID(c, "paymentID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.paymentSvc.Delete(c.Request.Context(), paymentdomain.DeleteRequest{
		OrgID:     orgID,
		InvoiceID: invoiceID,
		PaymentID: paymentID,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
