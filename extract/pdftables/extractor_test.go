package pdftables

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-tables/utils"
)

var vitalRows = [][]string{
	{"year", "births", "deaths"},
	{"2020", "272", "305"},
	{"2021", "260", "317"},
}

// tablePDF writes a one-page PDF that places every cell with its own text
// matrix, 100pt apart horizontally and 14pt apart vertically.
func tablePDF(rows [][]string, caption string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 10 Tf\n")
	if caption != "" {
		fmt.Fprintf(&content, "1 0 0 1 72 750 Tm (%s) Tj\n", caption)
	}
	y := 700
	for _, row := range rows {
		for j, cell := range row {
			fmt.Fprintf(&content, "1 0 0 1 %d %d Tm (%s) Tj\n", 72+j*100, y, cell)
		}
		y -= 14
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func encrypt(t *testing.T, data []byte, password string) []byte {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	var out bytes.Buffer
	require.NoError(t, api.Encrypt(bytes.NewReader(data), &out, conf))
	return out.Bytes()
}

func newTestExtractor(opts Options) *Extractor {
	return New(opts, utils.NewLoggerTo(io.Discard, utils.LevelDebug))
}

func TestExtractFindsTable(t *testing.T) {
	ex := newTestExtractor(Options{Validate: true})

	tables, err := ex.Extract(context.Background(), tablePDF(vitalRows, "Vital statistics"))

	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 1, tables[0].Page)
	assert.Equal(t, vitalRows, tables[0].Rows)
}

func TestExtractPageWithoutTable(t *testing.T) {
	ex := newTestExtractor(Options{})

	tables, err := ex.Extract(context.Background(), tablePDF(nil, "Only a caption"))

	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestExtractDecryptsWithPassword(t *testing.T) {
	locked := encrypt(t, tablePDF(vitalRows, ""), "secret")

	tables, err := newTestExtractor(Options{Password: "secret"}).Extract(context.Background(), locked)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, vitalRows, tables[0].Rows)

	_, err = newTestExtractor(Options{Password: "wrong"}).Extract(context.Background(), locked)
	assert.Error(t, err)
}

func TestExtractIgnoresPasswordForPlainDocument(t *testing.T) {
	tables, err := newTestExtractor(Options{Password: "secret"}).Extract(context.Background(), tablePDF(vitalRows, ""))

	require.NoError(t, err)
	require.Len(t, tables, 1)
}

func TestExtractRejectsGarbage(t *testing.T) {
	_, err := newTestExtractor(Options{}).Extract(context.Background(), []byte("%PDF-1.4 not really"))
	assert.Error(t, err)

	_, err = newTestExtractor(Options{Validate: true}).Extract(context.Background(), []byte("plain text"))
	assert.Error(t, err)
}

func TestExtractStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExtractor(Options{}).Extract(ctx, tablePDF(vitalRows, ""))
	assert.ErrorIs(t, err, context.Canceled)
}
