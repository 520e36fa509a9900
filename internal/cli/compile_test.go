package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCompile(t *testing.T, format string, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileCommandFromFile(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml", "testdata/owlbear.json")
	require.NoError(t, err)

	assert.Contains(t, out, "SQL:    SELECT * FROM images WHERE (creature = ? AND userID > ?)\n")
	assert.Contains(t, out, `Params: ["owlbear",100]`)
	assert.Contains(t, out, "Request: ")
	assert.Contains(t, out, "Policy:  ")
}

func TestCompileCommandJSON(t *testing.T) {
	out, err := executeCompile(t, "json", "", "--policy", "testdata/policy.yaml",
		`{"query":"SELECT","items":[{"COUNT":"*"}],"table":"images"}`)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "SELECT COUNT(*) FROM images", resp.Data.SQL)
	assert.Empty(t, resp.Data.Params)
	assert.Len(t, resp.Data.Fingerprint, 64)
	assert.Len(t, resp.Data.PolicyHash, 64)
}

func TestCompileCommandStdin(t *testing.T) {
	stdin := `{"query":"SELECT","items":["name"],"table":"users","connection":"WHERE","logic":{"userID":{"IN":[1,2]}}}`
	out, err := executeCompile(t, "text", stdin, "--policy", "testdata/policy.yaml", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT name FROM users WHERE userID IN (?,?)")
	assert.Contains(t, out, "Params: [1,2]")
}

func TestCompileCommandDollarPlaceholders(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml",
		"--placeholder", "dollar", "testdata/owlbear.json")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT * FROM images WHERE (creature = $1 AND userID > $2)")
}

func TestCompileCommandRejection(t *testing.T) {
	out, err := executeCompile(t, "json", "", "--policy", "testdata/policy.yaml",
		`{"query":"SELECT","items":["*"],"table":"secrets"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DISALLOWED_TABLE", resp.Error.Code)
	assert.Equal(t, "table not allowed - secrets", resp.Error.Message)
}

func TestCompileCommandLogicRejectionText(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml",
		`{"query":"SELECT","items":["*"],"table":"images","connection":"WHERE","logic":{"password":{"=":"x"}}}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, strings.HasPrefix(out, "Error [DISALLOWED_COLUMN]: logic fail - "), out)
}

func TestCompileCommandInvalidJSON(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml", "{not json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [WRONG_TYPE]: request is not valid JSON")
}

func TestCompileCommandMissingPolicy(t *testing.T) {
	out, err := executeCompile(t, "text", "", "testdata/owlbear.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]: --policy is required")
}

func TestCompileCommandPolicyNotFound(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/nope.yaml", "testdata/owlbear.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: policy file not found")
}

func TestCompileCommandRequestNotFound(t *testing.T) {
	out, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml", "testdata/nope.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "request file not found")
}

func TestCompileCommandBadPlaceholder(t *testing.T) {
	_, err := executeCompile(t, "text", "", "--policy", "testdata/policy.yaml",
		"--placeholder", "percent", "testdata/owlbear.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --placeholder")
}
