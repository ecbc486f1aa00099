package csvsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"report-tables/utils"
)

func newTestLoader(opts Options) *Loader {
	return NewLoader(opts, utils.NewLoggerTo(io.Discard, utils.LevelDebug))
}

func TestDecodeStripsBOM(t *testing.T) {
	text, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, "연도,값\n"...))
	require.NoError(t, err)
	assert.Equal(t, "연도,값\n", text)
}

func TestDecodeCP949Fallback(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("연도,혼인율\n2020,4.2\n"))
	require.NoError(t, err)

	text, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "연도,혼인율\n2020,4.2\n", text)
}

func TestFlattenHeaders(t *testing.T) {
	rows := [][]string{
		{"연도", "가구", "", "인구"},
		{"", "1인", "2인", ""},
		{"2020", "10", "20", "30"},
	}

	got := FlattenHeaders(rows, 2)
	assert.Equal(t, [][]string{
		{"연도", "가구_1인", "가구_2인", "인구"},
		{"2020", "10", "20", "30"},
	}, got)
}

func TestFlattenHeadersSingleRowIsNoop(t *testing.T) {
	rows := [][]string{{"a"}, {"1"}}
	assert.Equal(t, rows, FlattenHeaders(rows, 1))
	assert.Equal(t, rows, FlattenHeaders(rows, 5))
}

func TestExtractRaggedRows(t *testing.T) {
	l := newTestLoader(Options{})
	tables, err := l.Extract(context.Background(), []byte("연도,출생아\n2020,272,extra\n2021\n"))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 0, tables[0].Page)
	assert.Equal(t, [][]string{{"연도", "출생아"}, {"2020", "272", "extra"}, {"2021"}}, tables[0].Rows)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "births.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,births\n2020,1\n2021,2\n"), 0o644))

	tables, err := newTestLoader(Options{}).Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].Rows, 3)
}

func TestLoadURLRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("year,rate\n2020,1%\n2021,2%\n"))
	}))
	defer srv.Close()

	l := newTestLoader(Options{Retry: utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}})
	tables, err := l.Load(context.Background(), srv.URL+"/rates.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"2021", "2%"}, tables[0].Rows[2])
}

func TestLoadURLGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := newTestLoader(Options{Retry: utils.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}})
	_, err := l.Load(context.Background(), srv.URL)
	assert.Error(t, err)
}
