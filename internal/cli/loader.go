package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/store"
)

// loadedPolicy is a built policy plus its fingerprint.
type loadedPolicy struct {
	Policy      *policy.Policy
	Config      policy.Config
	Fingerprint string
}

// loadPolicy reads and builds the policy at path. Errors are ExitErrors
// with ExitCommandError.
func loadPolicy(path string) (*loadedPolicy, error) {
	if path == "" {
		return nil, commandError(ErrCodePolicy, "--policy is required", nil)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, commandError(ErrCodeNotFound, fmt.Sprintf("policy file not found: %s", path), nil)
	}

	cfg, err := policy.LoadFile(path)
	if err != nil {
		return nil, commandError(ErrCodePolicy, "loading policy", err)
	}
	p, err := policy.New(cfg)
	if err != nil {
		return nil, commandError(ErrCodePolicy, "invalid policy", err)
	}
	fp, err := cfg.Fingerprint()
	if err != nil {
		return nil, commandError(ErrCodePolicy, "fingerprinting policy", err)
	}
	return &loadedPolicy{Policy: p, Config: cfg, Fingerprint: fp}, nil
}

// readRequest returns the request text named by arg: "-" or "" reads
// stdin, text starting with "{" is the request itself, anything else is a
// file path.
func readRequest(arg string, stdin io.Reader) ([]byte, error) {
	trimmed := strings.TrimSpace(arg)
	switch {
	case trimmed == "" || trimmed == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, commandError(ErrCodeRequest, "reading request from stdin", err)
		}
		return data, nil
	case strings.HasPrefix(trimmed, "{"):
		return []byte(arg), nil
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, commandError(ErrCodeNotFound, fmt.Sprintf("request file not found: %s", arg), nil)
			}
			return nil, commandError(ErrCodeRequest, "reading request", err)
		}
		return data, nil
	}
}

// requestFingerprint hashes the canonical form of a request. Requests
// that are not JSON have no fingerprint.
func requestFingerprint(data []byte) string {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return ""
	}
	fp, err := ir.RequestFingerprint(v)
	if err != nil {
		return ""
	}
	return fp
}

// openStore opens a database with the named driver. SQLite paths must
// exist so a typo does not create an empty database.
func openStore(ctx context.Context, driver, dsn string) (*store.Store, error) {
	if dsn == "" {
		return nil, commandError(ErrCodeDatabase, "--db is required", nil)
	}
	if driver == store.DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if _, err := os.Stat(dsn); os.IsNotExist(err) {
			return nil, commandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", dsn), nil)
		}
	}
	s, err := store.OpenDriver(ctx, driver, dsn)
	if err != nil {
		return nil, commandError(ErrCodeDatabase, "opening database", err)
	}
	return s, nil
}
