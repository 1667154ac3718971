package docadapter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/procerr"
)

func TestParseStatementLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		ok          bool
		date        string
		description string
		amount      string
	}{
		{
			name:        "iso date trailing amount",
			line:        "2024-03-05 HDFC HOME LOAN EMI 32,000.00 DR",
			ok:          true,
			date:        "2024-03-05",
			description: "HDFC HOME LOAN EMI",
			amount:      "-32000",
		},
		{
			name:        "slash date credit",
			line:        "31/01/2024 ACME CORP SALARY 85,000.00 CR",
			ok:          true,
			date:        "31/01/2024",
			description: "ACME CORP SALARY",
			amount:      "85000",
		},
		{
			name:        "month name date",
			line:        "05 Mar 2024 LIC PREMIUM (8,000.00)",
			ok:          true,
			date:        "05 Mar 2024",
			description: "LIC PREMIUM",
			amount:      "-8000",
		},
		{name: "header row", line: "Date Description Amount", ok: false},
		{name: "footer", line: "Page 1 of 3", ok: false},
		{name: "no amount", line: "2024-03-05 SOME NARRATION", ok: false},
		{name: "zero amount", line: "2024-03-05 FEE WAIVER 0.00", ok: false},
		{name: "empty", line: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record, ok := parseStatementLine(tc.line)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			expected, err := decimal.NewFromString(tc.amount)
			require.NoError(t, err)
			assert.Equal(t, tc.date, record.Date)
			assert.Equal(t, tc.description, record.Description)
			assert.True(t, expected.Equal(record.Amount),
				"amount = %s, want %s", record.Amount, expected)
		})
	}
}

func TestTableExtractorRejectsNonPDF(t *testing.T) {
	extractor := NewTableExtractor(0, 0, &logging.MockLogger{})

	_, err := extractor.ParseDocument(context.Background(), "bogus.pdf", []byte("plain text"))
	require.Error(t, err)
	var formatErr *procerr.InvalidFormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestNewTableExtractorDefaults(t *testing.T) {
	extractor := NewTableExtractor(0, 0, nil)
	assert.Equal(t, DefaultPageCap, extractor.pageCap)
	assert.Equal(t, DefaultRowCap, extractor.rowCap)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences("```\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, stripCodeFences(`[{"a":1}]`))
	assert.Equal(t, `[]`, stripCodeFences("  []  "))
}
