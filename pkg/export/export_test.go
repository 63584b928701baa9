package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Fee statement",
		Headers: []string{"Receipt", "Amount"},
		Rows: []map[string]string{
			{"Receipt": "RCP-20250110-AB12CD", "Amount": "200.00"},
			{"Receipt": "RCP-20250112-ZZ99YY", "Amount": "270.00"},
		},
		Footer: map[string]string{"Receipt": "Total", "Amount": "470.00"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Receipt,Amount\nRCP-20250110-AB12CD,200.00\nRCP-20250112-ZZ99YY,270.00\nTotal,470.00\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRenderReceipt(t *testing.T) {
	out, err := NewPDFExporter().RenderReceipt(Receipt{
		Institution:   "SMA",
		ReceiptNumber: "RCP-20250110-AB12CD",
		Lines:         []ReceiptLine{{Label: "Student", Value: "student-1"}},
		Amount:        "200.00",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().RenderReceipt(Receipt{})
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter("fee-ledger").Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Fee statement")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Receipt", "Amount"}, rows[0])
	assert.Equal(t, []string{"Total", "470.00"}, rows[3])
}
