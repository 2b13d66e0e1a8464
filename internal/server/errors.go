package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/fieldhive/opsledger/internal/invoice/domain"
	paymentdomain "github.com/fieldhive/opsledger/internal/payment/domain"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is the wire shape of a failed request.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

func invalidRequestError() *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       "invalid_request",
		Message:    "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       code,
		Message:    message,
		Field:      field,
	}
}

// AbortWithError translates domain errors into HTTP responses. Unknown
// errors surface as 500 without leaking internals.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case isNotFoundError(err):
		status = http.StatusNotFound
	case isConflictError(err):
		status = http.StatusConflict
	case isValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": &APIError{
			StatusCode: status,
			Code:       "internal_error",
			Message:    "internal error",
		}})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &APIError{
		StatusCode: status,
		Code:       err.Error(),
		Message:    err.Error(),
	}})
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrLineItemNotFound),
		errors.Is(err, invoicedomain.ErrJobNotFound),
		errors.Is(err, invoicedomain.ErrBidNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidStatusTransition),
		errors.Is(err, invoicedomain.ErrDuplicateDocumentNumber):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidOrganization),
		errors.Is(err, invoicedomain.ErrMissingOwnerReference),
		errors.Is(err, invoicedomain.ErrInvalidOwner),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidDiscountType),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidQuantity),
		errors.Is(err, invoicedomain.ErrInvalidUnitPrice),
		errors.Is(err, invoicedomain.ErrInvalidTitle),
		errors.Is(err, paymentdomain.ErrInvalidAmount):
		return true
	default:
		return false
	}
}
