package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNormalize_Stdin(t *testing.T) {
	out, err := run(t, `{"name":"Carlos","message":"<b>Oi</b>","status":"open"}`, "normalize")
	require.NoError(t, err)

	var rec domain.Engagement
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Carlos", rec.CustomerName)
	assert.Equal(t, "Oi", rec.CleanMessage)
	assert.Equal(t, domain.StatusInProgress, rec.Status)
}

func TestNormalize_FileVisit(t *testing.T) {
	file := filepath.Join(t.TempDir(), "visit.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"page":"Blog","duration":12}`), 0o600))

	out, err := run(t, "", "normalize", "--source", "visit", file)
	require.NoError(t, err)

	var v domain.Visit
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "Blog", v.PageVisited)
	assert.Equal(t, int64(12), v.DwellTimeSeconds)
}

func TestNormalize_StrictRejects(t *testing.T) {
	_, err := run(t, `{}`, "normalize")
	var validation *domain.ErrValidation
	assert.ErrorAs(t, err, &validation)

	out, err := run(t, `{}`, "normalize", "--strict=false")
	require.NoError(t, err)
	assert.Contains(t, out, domain.UnidentifiedName)
}

func TestNormalize_UnknownSource(t *testing.T) {
	_, err := run(t, `{}`, "normalize", "--source", "email")
	assert.ErrorContains(t, err, "unknown source")
}

func TestExport_Memory(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	out, err := run(t, "", "export", "visits")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "id,url_origem"))
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	_, err := run(t, "", "migrate")
	assert.ErrorContains(t, err, "STORE_BACKEND")
}
