package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/jsonsql/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
// Only deterministic fields are included.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	cases := make(ir.IRArray, len(result.Cases))
	for i, c := range result.Cases {
		obj := ir.IRObject{
			"name":     ir.IRString(c.Name),
			"ok":       ir.IRBool(c.OK),
			"audit_id": ir.IRString(c.AuditID),
		}
		if c.OK {
			params, err := ir.FromGo(c.Params)
			if err != nil {
				return nil, err
			}
			obj["sql"] = ir.IRString(c.SQL)
			obj["params"] = params
			if c.Rows != nil {
				obj["rows"] = ir.IRInt(*c.Rows)
			}
		} else {
			obj["code"] = ir.IRString(c.Code)
			obj["reason"] = ir.IRString(c.Reason)
		}
		cases[i] = obj
	}

	return ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(scenarioName),
		"cases":    cases,
	})
}

// RunWithGolden executes a scenario, fails the test on any expectation
// error, and compares the outcome against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
