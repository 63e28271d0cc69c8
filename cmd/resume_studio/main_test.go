package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

// execute runs the root command with args against a clean environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "RUNTIME_CONFIG", "APP_ENV"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("APP_ENV", "testing")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHumanizerConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	content := "llm:\n  coverLetterHumanizer:\n    minNaturalnessScore: \"120\"\n    maxAiRiskScore: -10\n    maxRewritePasses: 7\n    debugLogs: \"false\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := execute(t, "humanizer-config", "--config", path)
	require.NoError(t, err)

	var got types.HumanizerConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, types.HumanizerConfig{MinNaturalnessScore: 100, MaxAiRiskScore: 0, MaxRewritePasses: 3, DebugLogs: false}, got)
}

func TestHumanizerConfigCommand_Defaults(t *testing.T) {
	out, err := execute(t, "humanizer-config", "--config", "")
	require.NoError(t, err)

	var got types.HumanizerConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, types.HumanizerConfig{MinNaturalnessScore: 75, MaxAiRiskScore: 35, MaxRewritePasses: 1, DebugLogs: true}, got)
}

func TestResolveCommand_FallsBackWithoutCatalog(t *testing.T) {
	out, err := execute(t, "resolve", "--scenario", "cover_letter_generation", "--role", "friend")
	require.NoError(t, err)

	var got struct {
		Resolved bool                `json:"resolved"`
		Route    types.ResolvedRoute `json:"route"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Resolved)
	assert.Equal(t, types.RouteSourceFallback, got.Route.Source)
	assert.Equal(t, types.RoleFriend, got.Route.Role)
	assert.Equal(t, 2048, got.Route.MaxTokens)
	assert.InDelta(t, 0.7, got.Route.Temperature, 1e-9)
}

func TestResolveCommand_Errors(t *testing.T) {
	_, err := execute(t, "resolve", "--scenario", "resume_adaptation", "--role", "owner")
	assert.ErrorContains(t, err, "unknown role")

	_, err = execute(t, "resolve", "--scenario", "no_such_scenario", "--role", "public")
	assert.ErrorContains(t, err, "unknown scenario")
}

func TestRequesterFor(t *testing.T) {
	req, err := requesterFor("super_admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleSuperAdmin, req.Role)

	_, err = requesterFor("root")
	assert.Error(t, err)
}

func TestReadAndWriteJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"title": "Engineer", "skills": ["Go"]}`), 0o600))

	var r types.ResumeContent
	require.NoError(t, readJSONFile(in, &r))
	assert.Equal(t, "Engineer", r.Title)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	assert.Error(t, readJSONFile(bad, &r))
	assert.Error(t, readJSONFile(filepath.Join(dir, "missing.json"), &r))

	out := filepath.Join(dir, "out.json")
	require.NoError(t, writeOutput(nil, out, r))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Engineer"`)

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "", map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a": 1}`, buf.String())
}

func TestGenerateCommand_RequiresProvider(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.json")
	vacancy := filepath.Join(dir, "vacancy.json")
	require.NoError(t, os.WriteFile(resume, []byte(`{"title": "Engineer"}`), 0o600))
	require.NoError(t, os.WriteFile(vacancy, []byte(`{"title": "Go Engineer", "description": "Go"}`), 0o600))
	for _, k := range []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "GENAI_API_KEY"} {
		t.Setenv(k, "")
	}

	_, err := execute(t, "generate", "--resume", resume, "--vacancy", vacancy, "--role", "public", "--cover-letter=false", "--out", "")
	assert.ErrorContains(t, err, "no LLM provider configured")
}
