package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// LoadCUE evaluates a CUE file and decodes its policy.
//
// The policy is read from a top-level `policy` struct when present, otherwise
// from the file root. CUE constraints in the file are evaluated first, so a
// policy can be written against a schema:
//
//	#Kind: "string" | "integer" | "float" | "boolean"
//	policy: {
//		queries: ["SELECT"]
//		columns: [string]: #Kind
//		columns: creature: "string"
//	}
func LoadCUE(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading policy: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return DecodeCUE(v)
}

// DecodeCUE extracts a Config from an evaluated CUE value.
func DecodeCUE(v cue.Value) (Config, error) {
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	if p := v.LookupPath(cue.ParsePath("policy")); p.Exists() {
		v = p
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return Config{}, formatCUEError(err)
	}

	cfg, err := Parse(data)
	if ce, ok := err.(*ConfigError); ok {
		ce.Pos = v.Pos()
		return Config{}, ce
	}
	return cfg, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	ce := &ConfigError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
