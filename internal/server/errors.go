package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	billingdomain "github.com/smallbiznis/freshwall/internal/billing/domain"
	fieldworkdomain "github.com/smallbiznis/freshwall/internal/fieldwork/domain"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/freshwall/internal/invoice/format"
	templatedomain "github.com/smallbiznis/freshwall/internal/invoicetemplate/domain"
	sequencedomain "github.com/smallbiznis/freshwall/internal/sequence/domain"
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

// bindError converts a binding failure into field-level validation errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalidRequestError()
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    "invalid_" + fe.Tag(),
			Message: fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()),
		})
	}
	return &ValidationErrors{Errors: out}
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
					Field:   validationErrorField(err, code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, invoicedomain.ErrRendererNotFound):
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

// classifyErrorForLog returns the log type and code for a request error.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", code
	default:
		return "client_error", code
	}
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
		errors.Is(err, invoicedomain.ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrEmptyBatch),
		errors.Is(err, invoicedomain.ErrInvalidSequence),
		errors.Is(err, invoiceformat.ErrUnknownNumberScheme),
		errors.Is(err, billingdomain.ErrUnsupportedBillingMethod),
		errors.Is(err, sequencedomain.ErrInvalidKey):
		return true
	case isTemplateValidationError(err),
		isFieldworkValidationError(err):
		return true
	default:
		return false
	}
}

func isTemplateValidationError(err error) bool {
	switch {
	case errors.Is(err, templatedomain.ErrInvalidID),
		errors.Is(err, templatedomain.ErrInvalidName),
		errors.Is(err, templatedomain.ErrInvalidCurrency),
		errors.Is(err, templatedomain.ErrInvalidNumberFormat),
		errors.Is(err, templatedomain.ErrInvalidPaymentTerms),
		errors.Is(err, templatedomain.ErrInvalidTaxRate),
		errors.Is(err, templatedomain.ErrInvalidColumns),
		errors.Is(err, templatedomain.ErrInvalidSort),
		errors.Is(err, templatedomain.ErrInvalidCompany),
		errors.Is(err, templatedomain.ErrInvalidFallbackRate):
		return true
	default:
		return false
	}
}

func isFieldworkValidationError(err error) bool {
	switch {
	case errors.Is(err, fieldworkdomain.ErrInvalidClientID),
		errors.Is(err, fieldworkdomain.ErrInvalidName),
		errors.Is(err, fieldworkdomain.ErrInvalidPeriod),
		errors.Is(err, fieldworkdomain.ErrInvalidBillingConfig),
		errors.Is(err, fieldworkdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, templatedomain.ErrNotFound),
		errors.Is(err, fieldworkdomain.ErrClientNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, sequencedomain.ErrSequenceContention),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicedomain.ErrEmptyBatch):
		return invoicedomain.ErrEmptyBatch.Error()
	default:
		code, _, _ := strings.Cut(err.Error(), ":")
		return strings.TrimSpace(code)
	}
}

// validationErrorField prefers the field named after the sentinel ("invalid_request: client_id").
func validationErrorField(err error, code string) string {
	if _, detail, ok := strings.Cut(err.Error(), ":"); ok {
		if field := strings.TrimSpace(detail); field != "" && !strings.ContainsAny(field, " \t") {
			return field
		}
	}
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "empty_batch":
		return "at least one client is required"
	case "unsupported_billing_method":
		return "billing method is not supported"
	default:
		return "invalid value"
	}
}
