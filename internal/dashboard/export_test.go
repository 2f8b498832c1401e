package dashboard

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdash/internal/model"
)

var exportRows = []model.Task{
	{ID: 1, Task: "Draft agenda", Meeting: "M1", Project: "P1"},
	{ID: 2, Task: "Review, then ship", Meeting: "M2", Project: "P2"},
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestExport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatJSON, "Tasks", Columns(), exportRows))

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{
		"task_id": "1",
		"task":    "Draft agenda",
		"meeting": "M1",
		"project": "P1",
	}, rows[0])
}

func TestExport_CSVSkipsActionColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatCSV, "Tasks", Columns(), exportRows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"ID", "Task", "Meeting", "Project"}, recs[0])
	assert.Equal(t, []string{"2", "Review, then ship", "M2", "P2"}, recs[2])
}

func TestExport_PDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatPDF, "Tasks", Columns(), exportRows))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExport_PDFEncodesNonASCIITitle(t *testing.T) {
	pdf := pdfDocument("Réunions café", exportColumns(Columns()), exportRows)
	pdf.SetCompression(false)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	out := buf.Bytes()
	assert.True(t, bytes.Contains(out, []byte("R\xe9unions caf\xe9")))
	assert.False(t, bytes.Contains(out, []byte("Réunions")))
}

func TestExport_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, FormatJSON, "Tasks", Columns(), nil))
	assert.JSONEq(t, `[]`, buf.String())
}
