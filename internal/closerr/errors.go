// Package closerr provides the engine's structured error taxonomy: kinds
// (not Go types), a StructuredError value carrying recovery guidance, and
// the retry/backoff policy surfaced to callers.
//
// Propagation policy: unifier and conflict-detector failures are values
// (empty results), never errors. The forward chainer treats budget
// exhaustion as a control-flow signal, not an error, and terminates its loop
// cleanly. Only the closure façade wraps unexpected failures into
// StructuredError and returns an indeterminate result — consistency
// failures become results, not errors.
package closerr

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Kind is a logical error kind — not a Go type — used to select category,
// retry policy, and recovery suggestions.
type Kind string

const (
	KindInputMalformed         Kind = "InputMalformed"
	KindCanonicalizationFailed Kind = "CanonicalizationFailed"
	KindSchemaRetrievalFailed  Kind = "SchemaRetrievalFailed"
	KindSlotFillingFailed      Kind = "SlotFillingFailed"
	KindBudgetExhausted        Kind = "BudgetExhausted"
	KindTimeout                Kind = "Timeout"
	KindStorageUnavailable     Kind = "StorageUnavailable"
	KindOutOfMemory            Kind = "OutOfMemory"
	KindConsistencyConflict    Kind = "ConsistencyConflict"
	KindInternalError          Kind = "InternalError"
)

// Category is the caller-facing error taxonomy bucket (§6): input,
// processing, execution, consistency, system.
type Category string

const (
	CategoryInput       Category = "input"
	CategoryProcessing  Category = "processing"
	CategoryExecution   Category = "execution"
	CategoryConsistency Category = "consistency"
	CategorySystem      Category = "system"
)

var kindCategory = map[Kind]Category{
	KindInputMalformed:         CategoryInput,
	KindCanonicalizationFailed: CategoryProcessing,
	KindSchemaRetrievalFailed:  CategoryProcessing,
	KindSlotFillingFailed:      CategoryProcessing,
	KindBudgetExhausted:        CategoryExecution,
	KindTimeout:                CategoryExecution,
	KindStorageUnavailable:     CategorySystem,
	KindOutOfMemory:            CategorySystem,
	KindConsistencyConflict:    CategoryConsistency,
	KindInternalError:          CategorySystem,
}

// CategoryOf returns the caller-facing category for a kind.
func CategoryOf(k Kind) Category {
	if c, ok := kindCategory[k]; ok {
		return c
	}
	return CategorySystem
}

// StructuredError carries actionable context: operation, module, an
// optional input summary, a call-stack breadcrumb, and recovery guidance.
type StructuredError struct {
	Kind                Kind     `json:"kind"`
	Message             string   `json:"message"`
	Operation           string   `json:"operation,omitempty"`
	Module              string   `json:"module,omitempty"`
	InputSummary        string   `json:"input_summary,omitempty"`
	Breadcrumb          []string `json:"breadcrumb,omitempty"`
	RecoverySuggestions []string `json:"recovery_suggestions,omitempty"`
	Cause               error    `json:"-"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *StructuredError) Unwrap() error { return e.Cause }

func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type alias StructuredError
	return json.Marshal((*alias)(e))
}

// New creates a StructuredError of the given kind.
func New(kind Kind, message string) *StructuredError {
	return &StructuredError{Kind: kind, Message: message}
}

// Wrap creates a StructuredError of the given kind around an existing error,
// tagged with operation/module context (the façade's InternalError path).
func Wrap(kind Kind, operation, module string, err error) *StructuredError {
	if err == nil {
		return nil
	}
	return &StructuredError{
		Kind:      kind,
		Message:   err.Error(),
		Operation: operation,
		Module:    module,
		Cause:     err,
	}
}

// WithRecovery appends a recovery suggestion and returns the receiver.
func (e *StructuredError) WithRecovery(suggestion string) *StructuredError {
	e.RecoverySuggestions = append(e.RecoverySuggestions, suggestion)
	return e
}

// WithBreadcrumb appends a call-stack breadcrumb entry.
func (e *StructuredError) WithBreadcrumb(frame string) *StructuredError {
	e.Breadcrumb = append(e.Breadcrumb, frame)
	return e
}

// WithInputSummary attaches a short description of the offending input.
func (e *StructuredError) WithInputSummary(summary string) *StructuredError {
	e.InputSummary = summary
	return e
}

// IsRetryable reports whether the caller should retry at all.
func IsRetryable(k Kind) bool {
	switch k {
	case KindBudgetExhausted:
		return true
	case KindStorageUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}

// BudgetMultiplier is the budget_multiplier applied on BudgetExhausted retry.
const BudgetMultiplier = 2

// RetryDelay implements the system-category exponential backoff:
// min(100*2^attempt, 30000) ms plus 10% jitter, for transient kinds.
func RetryDelay(attempt int) time.Duration {
	base := 100 * (int64(1) << uint(attempt))
	if base > 30000 {
		base = 30000
	}
	jitter := time.Duration(float64(base) * 0.1 * rand.Float64() * float64(time.Millisecond))
	return time.Duration(base)*time.Millisecond + jitter
}
