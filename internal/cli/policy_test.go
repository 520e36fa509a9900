package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPolicyCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewPolicyCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPolicyCommandPrintsNormalized(t *testing.T) {
	out, err := runPolicyCommand(t, "text", "testdata/policy.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "# testdata/policy.yaml\n# fingerprint: ")
	assert.Contains(t, out, "creature: string")
	assert.Contains(t, out, "userID: integer")
}

func TestPolicyCommandFingerprintStable(t *testing.T) {
	out1, err := runPolicyCommand(t, "json", "testdata/policy.yaml")
	require.NoError(t, err)
	out2, err := runPolicyCommand(t, "json", "testdata/policy.yaml")
	require.NoError(t, err)

	var r1, r2 struct {
		Data PolicyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out1), &r1))
	require.NoError(t, json.Unmarshal([]byte(out2), &r2))
	assert.Len(t, r1.Data.Fingerprint, 64)
	assert.Equal(t, r1.Data.Fingerprint, r2.Data.Fingerprint)
}

func TestPolicyCommandCUE(t *testing.T) {
	out, err := runPolicyCommand(t, "text", "../harness/testdata/policies/images.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "score: float")
}

func TestPolicyCommandRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queries: [SELECT]\ntabels: [images]\n"), 0644))

	out, err := runPolicyCommand(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E010]: loading policy")
}

func TestPolicyCommandNotFound(t *testing.T) {
	_, err := runPolicyCommand(t, "text", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "policy file not found")
}
