package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title:   "Timetable v3",
		Headers: []string{"Room", "Day", "Start", "End", "Course"},
		Tables: []Table{
			{Title: "Room R1", Rows: [][]string{{"R1", "Monday", "09:00", "10:00", "CS101"}}},
			{Title: "Room R2", Rows: [][]string{
				{"R2", "Monday", "09:00", "10:00", "MA101"},
				{"R2", "Tuesday", "09:00", "10:00", "MA101, lab"},
			}},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	expected := "Room,Day,Start,End,Course\n" +
		"R1,Monday,09:00,10:00,CS101\n" +
		"R2,Monday,09:00,10:00,MA101\n" +
		"R2,Tuesday,09:00,10:00,\"MA101, lab\"\n"
	assert.Equal(t, expected, string(out))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	doc := sampleDocument()
	doc.Tables[0].Rows[0] = doc.Tables[0].Rows[0][:2]

	_, err := NewCSVExporter().Render(doc)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(doc)
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Document{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty := sampleDocument()
	empty.Tables = nil
	out, err = NewPDFExporter().Render(empty)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDocument())
	total := 0.0
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, pdfPageWidth, total, 0.01)
	assert.Greater(t, widths[4], widths[0])
}
