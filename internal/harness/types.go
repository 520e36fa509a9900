package harness

// CaseResult is the observed outcome of one case.
type CaseResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	SQL     string `json:"sql,omitempty"`
	Params  []any  `json:"params,omitempty"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Rows    *int   `json:"rows,omitempty"`
	AuditID string `json:"audit_id"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every case met its expectation and every invariant held.
	Pass bool `json:"pass"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCase appends a case outcome.
func (r *Result) AddCase(c CaseResult) {
	r.Cases = append(r.Cases, c)
}
