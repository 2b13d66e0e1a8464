package server

import (
	"net/http"
	"strings"

	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// @Summary      Add Line Item
// @Description  Append a billable row to an invoice and recalculate
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "Invoice ID"
// @Param        request  body  lineItemInput  true  "Line Item"
// @Success      200  {object}  invoicedomain.LineItem
// @Router       /v1/invoices/{id}/line-items [post]
func (s *Server) AddLineItem(c *gin.Context) {
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

	var req lineItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.AddLineItem(c.Request.Context(), invoicedomain.AddLineItemRequest{
		OrgID:     orgID,
		InvoiceID: invoiceID,
		Item: invoicedomain.CreateLineItemInput{
			Title:          strings.TrimSpace(req.Title),
			Description:    strings.TrimSpace(req.Description),
			Quantity:       req.Quantity,
			UnitPrice:      req.UnitPrice,
			BillingPercent: req.BillingPercent,
			BilledAmount:   req.BilledAmount,
			SortOrder:      req.SortOrder,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateLineItemRequest struct {
	Title          *string          `json:"title"`
	Description    *string          `json:"description"`
	Quantity       *decimal.Decimal `json:"quantity"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	BillingPercent *decimal.Decimal `json:"billing_percent"`
	SortOrder      *int             `json:"sort_order"`
}

// @Summary      Update Line Item
// @Description  Merge supplied fields into a line item and recalculate
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "Invoice ID"
// @Param        itemID   path  string                 true  "Line Item ID"
// @Param        request  body  updateLineItemRequest  true  "Update Line Item Request"
// @Success      200  {object}  invoicedomain.LineItem
// @Router       /v1/invoices/{id}/line-items/{itemID} [patch]
func (s *Server) UpdateLineItem(c *gin.Context) {
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
	itemID, err := pathID(c, "itemID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.UpdateLineItem(c.Request.Context(), invoicedomain.UpdateLineItemRequest{
		OrgID:          orgID,
		InvoiceID:      invoiceID,
		LineItemID:     itemID,
		Title:          req.Title,
		Description:    req.Description,
		Quantity:       req.Quantity,
		UnitPrice:      req.UnitPrice,
		BillingPercent: req.BillingPercent,
		SortOrder:      req.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Line Item
// @Description  Soft-delete a line item and recalculate
// @Tags         line-items
// @Produce      json
// @Param        id      path  string  true  "Invoice ID"
// @Param        itemID  path  string  true  "Line Item ID"
// @Success      200  {object}  map[string]string
// @Router       /v1/invoices/{id}/line-items/{itemID} [delete]
func (s *Server) DeleteLineItem(c *gin.Context) {
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
	itemID, err := pathID(c, "itemID")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invoiceSvc.DeleteLineItem(c.Request.Context(), invoicedomain.DeleteLineItemRequest{
		OrgID:      orgID,
		InvoiceID:  invoiceID,
		LineItemID: itemID,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
