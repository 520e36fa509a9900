package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/jsonsql/internal/querysql"
)

// IDGenerator produces audit record ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AuditRecord is one compilation outcome.
// Exactly one of SQL or Code is set.
type AuditRecord struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	PolicyHash  string `json:"policy_hash"`
	SQL         string `json:"sql,omitempty"`
	ParamCount  int    `json:"param_count"`
	Code        string `json:"code,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Accepted reports whether the record is a successful compilation.
func (r AuditRecord) Accepted() bool { return r.Code == "" }

// Auditor appends compilation outcomes to the audit log.
type Auditor struct {
	store *Store
	ids   IDGenerator
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithIDGenerator replaces the UUIDv7 generator. Tests use this for
// byte-identical logs.
func WithIDGenerator(g IDGenerator) AuditorOption {
	return func(a *Auditor) {
		a.ids = g
	}
}

// NewAuditor returns an Auditor writing to s.
func NewAuditor(s *Store, opts ...AuditorOption) *Auditor {
	a := &Auditor{store: s, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record appends the outcome of compiling the request with the given
// fingerprint. compileErr is the compiler's error, or nil on success.
// Parameter values are counted, never stored.
func (a *Auditor) Record(ctx context.Context, fingerprint, policyHash string, stmt querysql.Statement, compileErr error) (AuditRecord, error) {
	rec := AuditRecord{
		ID:          a.ids.Generate(),
		Fingerprint: fingerprint,
		PolicyHash:  policyHash,
	}
	if compileErr != nil {
		rec.Code = string(querysql.CodeOf(compileErr))
		if rec.Code == "" {
			rec.Code = "ERROR"
		}
		rec.Reason = querysql.Reason(compileErr)
	} else {
		rec.SQL = stmt.SQL
		rec.ParamCount = len(stmt.Params)
	}

	query, err := a.store.rebind(`
		INSERT INTO audit_log (id, fingerprint, policy_hash, sql_text, param_count, code, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("write audit record: %w", err)
	}

	_, err = a.store.db.ExecContext(ctx, query,
		rec.ID, rec.Fingerprint, rec.PolicyHash, rec.SQL, rec.ParamCount, rec.Code, rec.Reason)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("write audit record: %w", err)
	}
	return rec, nil
}

// Records returns audit records ordered by id, optionally limited to one
// request fingerprint.
//
// Returns empty slice (not nil) if no records exist.
func (a *Auditor) Records(ctx context.Context, fingerprint string) ([]AuditRecord, error) {
	query := `
		SELECT id, fingerprint, policy_hash, sql_text, param_count, code, reason
		FROM audit_log`
	var args []any
	if fingerprint != "" {
		query += ` WHERE fingerprint = ?`
		args = append(args, fingerprint)
	}
	query += ` ORDER BY id ASC`

	query, err := a.store.rebind(query)
	if err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	rows, err := a.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	defer rows.Close()

	records := []AuditRecord{}
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.PolicyHash, &r.SQL, &r.ParamCount, &r.Code, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
