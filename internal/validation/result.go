package validation

// Error is a single validation failure. Immutable once created.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewError builds an Error, falling back to the code's default message
// when no custom message is supplied.
func NewError(code ErrorCode, customMessage string) Error {
	msg := customMessage
	if msg == "" {
		msg = DefaultMessage(code)
	}
	return Error{Code: code, Message: msg}
}

// Metadata carries stage-specific derived measurements. The key schema a
// stage produces is stable across calls so downstream stages and the UI
// can rely on presence/absence semantics.
type Metadata map[string]any

// Result accumulates the outcome of one stage invocation. Passed starts
// true and flips to false on the first AddError; it is false exactly when
// Errors is non-empty.
type Result struct {
	Passed   bool     `json:"passed"`
	Errors   []Error  `json:"errors"`
	Metadata Metadata `json:"metadata"`
}

// NewResult returns a passing result with empty metadata.
func NewResult() *Result {
	return &Result{Passed: true, Errors: []Error{}, Metadata: Metadata{}}
}

// AddError appends an error in detection order and marks the result
// failed. Prior errors are never removed.
func (r *Result) AddError(code ErrorCode, customMessage string) {
	r.Passed = false
	r.Errors = append(r.Errors, NewError(code, customMessage))
}
