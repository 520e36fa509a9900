package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/querysql"
	"github.com/roach88/jsonsql/internal/store"
	"github.com/roach88/jsonsql/internal/testutil"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store      *store.Store
	compiler   *querysql.Compiler
	auditor    *store.Auditor
	policyHash string
	fixture    bool
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the policy (inline or from policy_file)
// 2. Create fresh in-memory database and apply the fixture
// 3. Compile every case, audit it, execute accepted cases on the fixture
// 4. Check expectations and invariants
//
// A returned error means the scenario could not run. Expectation failures
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := loadPolicy(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build policy: %w", err)
	}
	policyHash, err := p.Config().Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint policy: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for i, stmt := range scenario.Fixture {
		if _, err := st.DB().ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("fixture[%d]: %w", i, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:      st,
		compiler:   querysql.NewCompiler(p, querysql.WithLogger(logger)),
		auditor:    store.NewAuditor(st, store.WithIDGenerator(testutil.NewSequentialIDs("audit"))),
		policyHash: policyHash,
		fixture:    len(scenario.Fixture) > 0,
		logger:     logger,
	}

	result := NewResult()
	for _, c := range scenario.Cases {
		cr, err := h.runCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		result.AddCase(cr)
		for _, msg := range CheckCase(c, cr) {
			result.AddError(fmt.Sprintf("%s: %s", c.Name, msg))
		}
	}

	return result, nil
}

func loadPolicy(s *Scenario) (*policy.Policy, error) {
	if s.PolicyFile != "" {
		return policy.Load(s.PolicyFile)
	}
	return policy.New(*s.Policy)
}

// runCase compiles, audits and (when a fixture exists) executes one case.
func (h *Harness) runCase(ctx context.Context, c Case) (CaseResult, error) {
	raw, err := caseRequest(c)
	if err != nil {
		return CaseResult{}, err
	}

	cr := CaseResult{Name: c.Name}
	var stmt querysql.Statement
	var compileErr error
	fingerprint := ""

	v, parseErr := ir.UnmarshalIRValue(raw)
	if parseErr == nil {
		fingerprint, err = ir.RequestFingerprint(v)
		if err != nil {
			return CaseResult{}, fmt.Errorf("fingerprint: %w", err)
		}
	}
	stmt, compileErr = h.compiler.CompileJSON(raw)

	rec, err := h.auditor.Record(ctx, fingerprint, h.policyHash, stmt, compileErr)
	if err != nil {
		return CaseResult{}, err
	}
	cr.AuditID = rec.ID

	if compileErr != nil {
		cr.Code = string(querysql.CodeOf(compileErr))
		cr.Reason = querysql.Reason(compileErr)
		h.logger.Debug("case rejected", "case", c.Name, "code", cr.Code)
		return cr, nil
	}

	cr.OK = true
	cr.SQL = stmt.SQL
	cr.Params = stmt.Params

	if h.fixture {
		rows, err := h.store.Execute(ctx, stmt)
		if err != nil {
			return CaseResult{}, fmt.Errorf("execute: %w", err)
		}
		n := len(rows)
		cr.Rows = &n
	}
	return cr, nil
}

// caseRequest returns the case's request as JSON text.
func caseRequest(c Case) ([]byte, error) {
	if c.RequestJSON != "" {
		return []byte(c.RequestJSON), nil
	}
	v, err := ir.FromGo(c.Request)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return ir.MarshalCanonical(v)
}
