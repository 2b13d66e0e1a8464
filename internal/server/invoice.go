package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type lineItemInput struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	BillingPercent decimal.Decimal `json:"billing_percent"`
	BilledAmount   decimal.Decimal `json:"billed_amount"`
	SortOrder      int             `json:"sort_order"`
}

type createInvoiceRequest struct {
	JobID    string `json:"job_id"`
	BidID    string `json:"bid_id"`
	ClientID string `json:"client_id"`

	IssuedAt *time.Time `json:"issued_at"`
	DueAt    *time.Time `json:"due_at"`

	LineItemSubTotal decimal.Decimal `json:"line_item_sub_total"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	DiscountType     string          `json:"discount_type"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`

	BillingAddress string `json:"billing_address"`
	Terms          string `json:"terms"`

	LineItems []lineItemInput `json:"line_items"`
}

// @Summary      Create Invoice
// @Description  Create an invoice with optional line items
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body createInvoiceRequest true "Create Invoice Request"
// @Success      200  {object}  invoicedomain.CreateResult
// @Router       /v1/invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	orgID, err := orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	jobID, err := optionalID(req.JobID)
	if err != nil {
		AbortWithError(c, newValidationError("job_id", "invalid_job_id", "invalid job_id"))
		return
	}
	bidID, err := optionalID(req.BidID)
	if err != nil {
		AbortWithError(c, newValidationError("bid_id", "invalid_bid_id", "invalid bid_id"))
		return
	}
	clientID, err := optionalID(req.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	}

	items := make([]invoicedomain.CreateLineItemInput, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, invoicedomain.CreateLineItemInput{
			Title:          strings.TrimSpace(item.Title),
			Description:    strings.TrimSpace(item.Description),
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			BillingPercent: item.BillingPercent,
			BilledAmount:   item.BilledAmount,
			SortOrder:      item.SortOrder,
		})
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		OrgID:            orgID,
		JobID:            jobID,
		BidID:            bidID,
		ClientID:         clientID,
		IssuedAt:         req.IssuedAt,
		DueAt:            req.DueAt,
		LineItemSubTotal: req.LineItemSubTotal,
		TaxRate:          req.TaxRate,
		TaxAmount:        req.TaxAmount,
		DiscountType:     invoicedomain.DiscountType(strings.TrimSpace(req.DiscountType)),
		DiscountValue:    req.DiscountValue,
		DiscountAmount:   req.DiscountAmount,
		TotalAmount:      req.TotalAmount,
		BillingAddress:   strings.TrimSpace(req.BillingAddress),
		Terms:            strings.TrimSpace(req.Terms),
		LineItems:        items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Invoice
// @Description  Get an invoice composed with its children
// @Tags         invoices
// @Produce      json
// @Param        id       path   string  true   "Invoice ID"
// @Param        include  query  string  false  "Comma-separated: line_items,payments,documents,history"
// @Success      200  {object}  invoicedomain.View
// @Router       /v1/invoices/{id} [get]
func (s *Server) GetInvoice(c *gin.Context) {
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

	req := invoicedomain.GetRequest{
		OrgID:     orgID,
		InvoiceID: invoiceID,
	}
	for _, include := range strings.Split(c.Query("include"), ",") {
		switch strings.TrimSpace(include) {
		case "line_items":
			req.IncludeLineItems = true
		case "payments":
			req.IncludePayments = true
		case "documents":
			req.IncludeDocuments = true
		case "history":
			req.IncludeHistory = true
		}
	}

	resp, err := s.invoiceSvc.Get(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	IssuedAt       *time.Time       `json:"issued_at"`
	DueAt          *time.Time       `json:"due_at"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	DiscountType   *string          `json:"discount_type"`
	DiscountValue  *decimal.Decimal `json:"discount_value"`
	BillingAddress *string          `json:"billing_address"`
	Terms          *string          `json:"terms"`
	Status         *string          `json:"status"`
}

// @Summary      Update Invoice
// @Description  Merge supplied fields into an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Invoice ID"
// @Param        request  body  updateInvoiceRequest  true  "Update Invoice Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /v1/invoices/{id} [patch]
func (s *Server) UpdateInvoice(c *gin.Context) {
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

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := invoicedomain.UpdateRequest{
		OrgID:          orgID,
		InvoiceID:      invoiceID,
		IssuedAt:       req.IssuedAt,
		DueAt:          req.DueAt,
		TaxRate:        req.TaxRate,
		DiscountValue:  req.DiscountValue,
		BillingAddress: req.BillingAddress,
		Terms:          req.Terms,
	}
	if req.DiscountType != nil {
		discountType := invoicedomain.DiscountType(strings.TrimSpace(*req.DiscountType))
		update.DiscountType = &discountType
	}
	if req.Status != nil {
		status := invoicedomain.Status(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Invoice
// @Description  Soft-delete an invoice and cascade to line items and documents
// @Tags         invoices
// @Produce      json
// @Param        id  path  string  true  "Invoice ID"
// @Success      200  {object}  map[string]string
// @Router       /v1/invoices/{id} [delete]
func (s *Server) DeleteInvoice(c *gin.Context) {
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

	if err := s.invoiceSvc.Delete(c.Request.Context(), orgID, invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type bulkDeleteRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

// @Summary      Bulk Delete Invoices
// @Description  Soft-delete a batch of invoices, skipping missing ones
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body bulkDeleteRequest true "Bulk Delete Request"
// @Success      200  {object}  invoicedomain.BulkDeleteResult
// @Router       /v1/invoices/bulk-delete [post]
func (s *Server) BulkDeleteInvoices(c *gin.Context) {
	orgID, err := orgIDFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.InvoiceIDs) == 0 {
		AbortWithError(c, newValidationError("invoice_ids", "required", "invoice_ids is required"))
		return
	}

	ids := make([]snowflake.ID, 0, len(req.InvoiceIDs))
	for _, raw := range req.InvoiceIDs {
		id, err := invoicedomain.ParseID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("invoice_ids", "invalid_id", "invalid invoice id: "+raw))
			return
		}
		ids = append(ids, id)
	}

	resp, err := s.invoiceSvc.BulkDelete(c.Request.Context(), orgID, ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Mark Invoice Paid
// @Description  Manually mark an invoice as paid
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path  string           true   "Invoice ID"
// @Param        request  body  overrideRequest  false  "Override Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /v1/invoices/{id}/mark-paid [post]
func (s *Server) MarkInvoicePaid(c *gin.Context) {
	s.override(c, s.invoiceSvc.MarkPaid)
}

// @Summary      Void Invoice
// @Description  Void an invoice; voided invoices are terminal
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path  string           true   "Invoice ID"
// @Param        request  body  overrideRequest  false  "Override Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /v1/invoices/{id}/void [post]
func (s *Server) VoidInvoice(c *gin.Context) {
	s.override(c, s.invoiceSvc.Void)
}

// @Summary      Recalculate Invoice
// @Description  Re-derive totals and status from line items and payments
// @Tags         invoices
// @Produce      json
// @Param        id  path  string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /v1/invoices/{id}/recalculate [post]
func (s *Server) RecalculateInvoice(c *gin.Context) {
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

	resp, err := s.invoiceSvc.Recalculate(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type overrideFunc func(ctx context.Context, req invoicedomain.OverrideRequest) (*invoicedomain.Invoice, error)

func (s *Server) override(c *gin.Context, fn overrideFunc) {
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

	var req overrideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := fn(c.Request.Context(), invoicedomain.OverrideRequest{
		OrgID:     orgID,
		InvoiceID: invoiceID,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func optionalID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return snowflake.ParseString(raw)
}
