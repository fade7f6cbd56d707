package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reliefledger/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	CallerKey contextKey = "caller"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]interface{}) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]interface{}{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// HTTPStatus maps a ledger error kind onto a response status.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindInsufficientStock, KindAlreadyProcessed, KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// SendLedgerError writes err as an ErrorResponse in the caller's language.
// Errors that are not LedgerErrors become a generic server error.
func SendLedgerError(c echo.Context, err error) error {
	lang := MatchLanguage(c.Request().Header.Get("Accept-Language"))

	var le *LedgerError
	if !errors.As(err, &le) {
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", Translate(lang, MsgInternal), nil))
	}

	var details map[string]interface{}
	if le.Kind == KindInsufficientStock {
		details = map[string]interface{}{
			"item_id":   le.ItemID,
			"item_name": le.ItemName,
			"requested": le.Requested,
			"available": le.Available,
		}
	}
	return c.JSON(HTTPStatus(le.Kind), CreateErrorResponse(string(le.Kind), le.Localize(lang), details))
}

// WithCaller stores the authenticated caller on the context.
func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCallerFromContext extracts the caller from the request context
func GetCallerFromContext(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(models.Caller)
	return caller, ok
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid id: %v", fieldName, err)
	}
	return id, nil
}

// ValidateOptionalUUID parses idStr when present.
func ValidateOptionalUUID(idStr string, fieldName string) (*uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return nil, nil
	}
	id, err := ValidateUUID(idStr, fieldName)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ValidateDateFormat parses an optional YYYY-MM-DD or RFC3339 date
func ValidateDateFormat(dateStr, fieldName string) (*time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("%s must be in YYYY-MM-DD or RFC3339 format", fieldName)
	}
	return &t, nil
}

// ValidatePaginationParams clamps pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
