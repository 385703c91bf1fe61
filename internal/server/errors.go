package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingrecorddomain "github.com/smallbiznis/costing/internal/billingrecord/domain"
	"github.com/smallbiznis/costing/internal/billingstore"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	invoicedomain "github.com/smallbiznis/costing/internal/invoice/domain"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	// Phase failures carry a message the console shows verbatim.
	var syncErr *costingdomain.SyncError
	if errors.As(err, &syncErr) {
		status := http.StatusBadGateway
		if errors.Is(err, costingdomain.ErrRowBusy) {
			status = http.StatusConflict
		}
		return status, errorPayload{
			Type:    "sync_failed",
			Message: syncErr.Error(),
		}
	}
	var invoiceErr *costingdomain.InvoiceError
	if errors.As(err, &invoiceErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "invoice_failed",
			Message: invoiceErr.Error(),
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, costingdomain.ErrRowBusy):
		return http.StatusConflict, errorPayload{
			Type:    "row_busy",
			Message: "row is being saved by another request",
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, billingstore.ErrInvalidOrganization),
		errors.Is(err, invoicedomain.ErrInvalidOrganization):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, costingdomain.ErrViewPeriodChanged),
		errors.Is(err, billingrecorddomain.ErrDuplicate):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, costingdomain.ErrRowNotEditable),
		errors.Is(err, costingdomain.ErrNothingToInvoice):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, costingdomain.ErrFetchFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the envelope type and the stable error code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, costingdomain.ErrInvalidPeriod),
		errors.Is(err, costingdomain.ErrInvalidEdit),
		errors.Is(err, ratetierdomain.ErrInvalidLevel),
		errors.Is(err, billingrecorddomain.ErrInvalidPeriod),
		errors.Is(err, billingrecorddomain.ErrInvalidPayload),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidPeriod),
		errors.Is(err, invoicedomain.ErrEmptyInvoice),
		errors.Is(err, invoicedomain.ErrUnknownRecord),
		errors.Is(err, invoicedomain.ErrPeriodMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, costingdomain.ErrLocationNotFound),
		errors.Is(err, costingdomain.ErrRowNotFound),
		errors.Is(err, billingrecorddomain.ErrNotFound),
		errors.Is(err, resourcedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, costingdomain.ErrInvalidEdit):
		return costingdomain.ErrInvalidEdit.Error()
	case errors.Is(err, costingdomain.ErrInvalidPeriod):
		return costingdomain.ErrInvalidPeriod.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(err error, code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case costingdomain.ErrInvalidEdit.Error():
		return err.Error()
	default:
		return "invalid value"
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, costingdomain.ErrViewPeriodChanged) {
		return "the loaded period differs from the requested invoice period; reload the rows first"
	}
	return "conflict"
}
