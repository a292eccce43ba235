package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoster() Roster {
	return Roster{
		Title: "Attendance",
		Facts: [][2]string{{"Class", "CSE A"}, {"Date", "2025-03-10"}},
		Columns: []Column{
			{Key: "register_no", Label: "Register No", Width: 35},
			{Key: "name", Label: "Name"},
			{Key: "status", Label: "Status", Width: 25},
		},
		Rows: []map[string]string{
			{"register_no": "21CS001", "name": "Asha", "status": "present"},
			{"register_no": "21CS002", "name": "Ravi, K", "status": "od"},
		},
	}
}

func TestCSVWriterRender(t *testing.T) {
	out, err := NewCSVWriter().Render(sampleRoster())
	require.NoError(t, err)
	assert.Equal(t, "Register No,Name,Status\n21CS001,Asha,present\n21CS002,\"Ravi, K\",od\n", string(out))
}

func TestCSVWriterCustomDelimiter(t *testing.T) {
	out, err := (&CSVWriter{Comma: ';'}).Render(sampleRoster())
	require.NoError(t, err)
	assert.Contains(t, string(out), "21CS002;Ravi, K;od")
}

func TestWritersRequireColumns(t *testing.T) {
	_, err := NewCSVWriter().Render(Roster{})
	assert.Error(t, err)
	_, err = NewPDFWriter().Render(Roster{Title: "roster"})
	assert.Error(t, err)
}

func TestPDFWriterRender(t *testing.T) {
	roster := sampleRoster()
	for i := 0; i < 80; i++ {
		roster.Rows = append(roster.Rows, map[string]string{"register_no": "X", "name": "Student", "status": "present"})
	}
	out, err := NewPDFWriter().Render(roster)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(sampleRoster().Columns)
	assert.Equal(t, []float64{35, 130, 25}, widths)
}
