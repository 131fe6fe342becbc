package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/analyses"
	"compliance-backend/internal/extract/pdftest"
)

const reply = `{"candidates":[{"content":{"parts":[{"text":"[{\"summary\":\"File annual report\",\"department\":\"Finance\",\"risk_score\":\"Low\",\"remediation_steps\":\"Calendar the deadline\",\"xai_rationale\":\"An annual report shall be filed.\"}]"}]}}]}`

func setupEnv(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("STORE_TYPE", "file")
	t.Setenv("STORE_FILE", filepath.Join(dir, analyses.DefaultStoreFile))
	t.Setenv("ARCHIVE_STORE", "none")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_BASE_URL", srv.URL)
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build("An annual report shall be filed."), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunThenTasks(t *testing.T) {
	pdf := setupEnv(t)

	out, err := execute(t, "run", pdf)
	require.NoError(t, err)
	var res analyses.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.DeduplicationHit)
	assert.Equal(t, 1, res.TasksCount)

	out, err = execute(t, "run", pdf)
	require.NoError(t, err)
	var again analyses.Result
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.True(t, again.DeduplicationHit)
	assert.Equal(t, res.UploadID, again.UploadID)

	out, err = execute(t, "tasks", res.UploadID)
	require.NoError(t, err)
	var tasks []analyses.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "File annual report", tasks[0].Summary)
}

func TestTasksUnknownIDPrintsEmptyList(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "tasks", "nope")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRunRequiresOneArgument(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestRunMissingFileWithStrictHashingFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("STRICT_HASHING", "true")
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}
