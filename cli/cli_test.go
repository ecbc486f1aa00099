package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-tables/storage"
	"report-tables/utils"
)

const birthsCSV = "연도,출생아,사망자,혼인율\n2019,303,295,7.2%\n2020,272,305,6.3%\n2021,260,317,5.8%\n"

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFetchLocalCSVWritesExports(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "births.csv", birthsCSV)
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, "fetch", src, "--out", outDir, "--display-percent")
	require.NoError(t, err)

	assert.Contains(t, out, "1 candidate tables")
	assert.Contains(t, out, "p.0 - table#1 (shape=4x4)")
	assert.FileExists(t, filepath.Join(outDir, "births_p0_t1_cleaned.csv"))

	long, err := os.ReadFile(filepath.Join(outDir, "births_p0_t1_long.csv"))
	require.NoError(t, err)
	body := strings.TrimPrefix(string(long), "\ufeff")
	assert.True(t, strings.HasPrefix(body, "연도,metric,value,display_value\n"))
	assert.Contains(t, body, "2020,혼인율,0.063,6.3\n")
}

func TestFetchForcedTableOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "births.csv", birthsCSV)

	_, err := runCLI(t, "fetch", src, "--out", dir, "--table", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table index out of range")
}

func TestBatchDeduplicatesAndReports(t *testing.T) {
	dir := t.TempDir()
	good := writeSource(t, dir, "births.csv", birthsCSV)
	flat := writeSource(t, dir, "survey.csv", "항목,내용\n조사대상,서울시민\n")
	missing := filepath.Join(dir, "missing.csv")

	out, err := runCLI(t, "batch", good, flat, good, missing, "--out", filepath.Join(dir, "out"), "--concurrency", "2")
	require.Error(t, err, "a missing file fails the batch")

	assert.Contains(t, out, "Processed 3 files")
	assert.Contains(t, out, "OK    "+good)
	assert.Contains(t, out, "NONE  "+flat)
	assert.Contains(t, out, "FAIL  "+missing)
}

func TestBatchKeepsExportsOfSameNamedInputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	first := writeSource(t, dir, filepath.Join("a", "report.csv"), "연도,x\n2020,1\n2021,2\n")
	second := writeSource(t, dir, filepath.Join("b", "report.csv"), "연도,y\n2020,3\n2021,4\n")
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, "batch", first, second, "--out", outDir, "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "OK    "+first)
	assert.Contains(t, out, "OK    "+second)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "each input keeps its cleaned and long files")

	var metrics []string
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "_long.csv") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		require.NoError(t, err)
		switch {
		case strings.Contains(string(body), "2020,x,1"):
			metrics = append(metrics, "x")
		case strings.Contains(string(body), "2020,y,3"):
			metrics = append(metrics, "y")
		}
	}
	assert.ElementsMatch(t, []string{"x", "y"}, metrics)
	assert.FileExists(t, filepath.Join(outDir, "report_p0_t1_long.csv"))
}

func TestPostgresFailureKeepsCSV(t *testing.T) {
	orig := openPostgres
	openPostgres = func(context.Context, string, *utils.Logger) (storage.ExportWriter, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { openPostgres = orig })

	dir := t.TempDir()
	src := writeSource(t, dir, "births.csv", birthsCSV)
	outDir := filepath.Join(dir, "out")

	t.Setenv("POSTGRES_HOST", "db.invalid")
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"fetch", src, "--out", outDir, "--postgres"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.FileExists(t, filepath.Join(outDir, "births_p0_t1_cleaned.csv"))
	assert.FileExists(t, filepath.Join(outDir, "births_p0_t1_long.csv"))
}

func TestCommandsRejectWrongArgs(t *testing.T) {
	tests := [][]string{
		{"extract"},
		{"fetch", "a.csv", "b.csv"},
		{"batch"},
		{"serve", "extra"},
		{"show-run"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := runCLI(t, args...)
			require.Error(t, err)
		})
	}
}

func TestShowRunNeedsValidID(t *testing.T) {
	_, err := runCLI(t, "show-run", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}

func TestInvalidVocabularyFails(t *testing.T) {
	dir := t.TempDir()
	vocab := writeSource(t, dir, "vocab.yaml", "time_axis_patterns: ['(']\n")
	src := writeSource(t, dir, "births.csv", birthsCSV)

	_, err := runCLI(t, "fetch", src, "--out", dir, "--vocabulary", vocab)
	require.Error(t, err)
}
