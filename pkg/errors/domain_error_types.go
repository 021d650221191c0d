package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainAuthorizationError indicates insufficient permissions
	DomainAuthorizationError DomainErrorType = "AUTHORIZATION_ERROR"

	// DomainAuthenticationError indicates authentication failure
	DomainAuthenticationError DomainErrorType = "AUTHENTICATION_ERROR"

	// DomainRateLimitError indicates rate limit exceeded
	DomainRateLimitError DomainErrorType = "RATE_LIMIT_ERROR"
)

// Error codes for the hierarchy rules. Callers switch on these, not on
// messages.
const (
	CodeIngredientNotFound    = "INGREDIENT_NOT_FOUND"
	CodeParentNotFound        = "PARENT_NOT_FOUND"
	CodeCircularReference     = "CIRCULAR_REFERENCE"
	CodeMaxDepthExceeded      = "MAX_DEPTH_EXCEEDED"
	CodeHierarchyLevelInvalid = "HIERARCHY_LEVEL_INVALID"
	CodeIngredientInUse       = "INGREDIENT_IN_USE"
	CodeSlugTaken             = "SLUG_TAKEN"
	CodeAliasNotFound         = "ALIAS_NOT_FOUND"
	CodeImportBatchInvalid    = "IMPORT_BATCH_INVALID"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400 // Bad Request
	case DomainBusinessRuleError:
		return 422 // Unprocessable Entity
	case DomainNotFoundError:
		return 404 // Not Found
	case DomainConflictError:
		return 409 // Conflict
	case DomainAuthenticationError:
		return 401 // Unauthorized
	case DomainAuthorizationError:
		return 403 // Forbidden
	case DomainRateLimitError:
		return 429 // Too Many Requests
	case DomainInfrastructureError:
		return 500 // Internal Server Error
	default:
		return 500 // Internal Server Error
	}
}

// Constructors for the hierarchy error taxonomy. Every mutation and query
// failure surfaces through one of these so callers always receive the
// structured payload (levels, suggestions, blocking counts) instead of a
// generic message.

// NewIngredientNotFound reports a missing ingredient.
func NewIngredientNotFound(ingredientID string) *DomainError {
	return NewDomainError(
		DomainNotFoundError,
		CodeIngredientNotFound,
		fmt.Sprintf("ingredient %q does not exist", ingredientID),
	).WithDetail("ingredient_id", ingredientID)
}

// NewParentNotFound reports a missing parent reference on create or move.
func NewParentNotFound(parentID string) *DomainError {
	return NewDomainError(
		DomainNotFoundError,
		CodeParentNotFound,
		fmt.Sprintf("parent ingredient %q does not exist", parentID),
	).WithDetail("parent_id", parentID)
}

// NewCircularReference reports a reparent that would create a cycle,
// including the degenerate case of moving a node under itself.
func NewCircularReference(ingredientID, candidateParentID string) *DomainError {
	msg := fmt.Sprintf("moving ingredient %q under %q would create a cycle", ingredientID, candidateParentID)
	if ingredientID == candidateParentID {
		msg = fmt.Sprintf("ingredient %q cannot be its own parent", ingredientID)
	}
	return NewDomainError(DomainBusinessRuleError, CodeCircularReference, msg).
		WithDetail("ingredient_id", ingredientID).
		WithDetail("candidate_parent_id", candidateParentID)
}

// NewMaxDepthExceeded reports a create or move that would push the named
// ingredient past the deepest allowed level.
func NewMaxDepthExceeded(ingredientID string, attemptedLevel, maxLevel int) *DomainError {
	return NewDomainError(
		DomainBusinessRuleError,
		CodeMaxDepthExceeded,
		fmt.Sprintf("ingredient %q would land at level %d; the hierarchy is capped at level %d", ingredientID, attemptedLevel, maxLevel),
	).
		WithDetail("ingredient_id", ingredientID).
		WithDetail("attempted_level", attemptedLevel).
		WithDetail("max_level", maxLevel)
}

// NewHierarchyValidation reports that an ingredient sits at a level the
// caller does not accept. Suggestions carry up to a handful of leaf names
// beneath or beside the ingredient so the caller can render an actionable
// message without re-querying.
func NewHierarchyValidation(ingredientID string, currentLevel int, allowedLevels []int, suggestedLeaves []string) *DomainError {
	msg := fmt.Sprintf("ingredient %q is at level %d, which is not selectable here", ingredientID, currentLevel)
	if len(suggestedLeaves) > 0 {
		msg = fmt.Sprintf("%s; select a specific ingredient, e.g. %s", msg, strings.Join(suggestedLeaves, ", "))
	}
	return NewDomainError(DomainValidationError, CodeHierarchyLevelInvalid, msg).
		WithDetail("ingredient_id", ingredientID).
		WithDetail("current_level", currentLevel).
		WithDetail("allowed_levels", allowedLevels).
		WithDetail("suggested_leaves", suggestedLeaves)
}

// BlockingCounts aggregates everything that pins an ingredient in place.
// All three counts are always populated together so a caller can present
// one complete message.
type BlockingCounts struct {
	Products int `json:"products"`
	Recipes  int `json:"recipes"`
	Children int `json:"children"`
}

// Total returns the combined number of blocking references.
func (b BlockingCounts) Total() int {
	return b.Products + b.Recipes + b.Children
}

// NewIngredientInUse reports a delete blocked by live references. It is a
// subtype of the hierarchy validation failure: IsHierarchyValidation returns
// true for it as well.
func NewIngredientInUse(ingredientID string, counts BlockingCounts) *DomainError {
	parts := make([]string, 0, 3)
	if counts.Products > 0 {
		parts = append(parts, fmt.Sprintf("%d product(s)", counts.Products))
	}
	if counts.Recipes > 0 {
		parts = append(parts, fmt.Sprintf("%d recipe(s)", counts.Recipes))
	}
	if counts.Children > 0 {
		parts = append(parts, fmt.Sprintf("%d child ingredient(s)", counts.Children))
	}
	msg := fmt.Sprintf("ingredient %q cannot be deleted: referenced by %s", ingredientID, strings.Join(parts, ", "))
	return NewDomainError(DomainValidationError, CodeIngredientInUse, msg).
		WithDetail("ingredient_id", ingredientID).
		WithDetail("blocking_products", counts.Products).
		WithDetail("blocking_recipes", counts.Recipes).
		WithDetail("blocking_children", counts.Children)
}

// NewSlugTaken reports a slug uniqueness violation.
func NewSlugTaken(slug string) *DomainError {
	return NewDomainError(
		DomainConflictError,
		CodeSlugTaken,
		fmt.Sprintf("an ingredient with slug %q already exists", slug),
	).WithDetail("slug", slug)
}

// NewAliasNotFound reports a missing alias record.
func NewAliasNotFound(aliasID string) *DomainError {
	return NewDomainError(
		DomainNotFoundError,
		CodeAliasNotFound,
		fmt.Sprintf("alias %q does not exist", aliasID),
	).WithDetail("alias_id", aliasID)
}

// NewImportBatchInvalid rejects a catalog import before any row is written.
// The whole batch commits or none of it does.
func NewImportBatchInvalid(batchID, reason string) *DomainError {
	return NewDomainError(
		DomainValidationError,
		CodeImportBatchInvalid,
		fmt.Sprintf("import batch %q rejected: %s", batchID, reason),
	).WithDetail("batch_id", batchID)
}

// Predicates. Handlers and tests switch on these instead of digging through
// codes by hand.

func isDomainCode(err error, code string) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == code
}

// GetDomainError extracts a DomainError from an error chain.
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

// IsIngredientNotFound reports whether err is a missing-ingredient or
// missing-parent failure.
func IsIngredientNotFound(err error) bool {
	return isDomainCode(err, CodeIngredientNotFound) || isDomainCode(err, CodeParentNotFound)
}

// IsCircularReference reports whether err is a cycle rejection.
func IsCircularReference(err error) bool {
	return isDomainCode(err, CodeCircularReference)
}

// IsMaxDepthExceeded reports whether err is a depth rejection.
func IsMaxDepthExceeded(err error) bool {
	return isDomainCode(err, CodeMaxDepthExceeded)
}

// IsHierarchyValidation reports whether err is a hierarchy validation
// failure, including its in-use subtype.
func IsHierarchyValidation(err error) bool {
	return isDomainCode(err, CodeHierarchyLevelInvalid) || isDomainCode(err, CodeIngredientInUse)
}

// IsIngredientInUse reports whether err is a blocked delete.
func IsIngredientInUse(err error) bool {
	return isDomainCode(err, CodeIngredientInUse)
}

// IsSlugTaken reports whether err is a slug uniqueness violation.
func IsSlugTaken(err error) bool {
	return isDomainCode(err, CodeSlugTaken)
}

// IsImportBatchInvalid reports whether err is a rejected import batch.
func IsImportBatchInvalid(err error) bool {
	return isDomainCode(err, CodeImportBatchInvalid)
}

// Common infrastructure-level domain errors.
var (
	ErrConcurrentModification = NewDomainError(
		DomainConflictError,
		"CONCURRENT_MODIFICATION",
		"The catalog was modified by another process",
	).WithRetryable(true)

	ErrCatalogLocked = NewDomainError(
		DomainConflictError,
		"CATALOG_LOCKED",
		"Another mutation is in flight; retry shortly",
	).WithRetryable(true)

	ErrTransactionFailed = NewDomainError(
		DomainInfrastructureError,
		"TRANSACTION_FAILED",
		"Catalog transaction failed",
	).WithRetryable(true)

	ErrEventPublishFailed = NewDomainError(
		DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED",
		"Failed to publish domain event",
	).WithRetryable(true)
)

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}

		if _, exists := result[field]; !exists {
			result[field] = make([]string, 0)
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// DomainErrorResponse represents the API error response format for domain errors
type DomainErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewDomainErrorResponse creates an error response from a domain error
func NewDomainErrorResponse(err *DomainError, requestID string) *DomainErrorResponse {
	return &DomainErrorResponse{
		Error:     true,
		Type:      err.Type,
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		RequestID: requestID,
		Timestamp: fmt.Sprintf("%d", timeNow().Unix()),
	}
}

// Helper function for testing (can be mocked)
var timeNow = func() time.Time {
	return time.Now()
}
