// Package csvadapter parses bank statement CSV exports into raw
// transaction records. Exports differ wildly between banks, so the
// adapter maps header synonyms onto a canonical schema, tolerates
// windows-1252 and latin-1 encodings, and merges split debit/credit
// columns into one signed amount.
package csvadapter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"

	"finsight/statement-hub/internal/amountutils"
	"finsight/statement-hub/internal/dateutils"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

// statementRow is the canonical row shape after header remapping.
type statementRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Debit       string `csv:"debit"`
	Credit      string `csv:"credit"`
}

// headerSynonyms maps the column names seen across bank exports onto
// the canonical schema. Keys are compared after lowering and trimming.
var headerSynonyms = map[string]string{
	"date":                "date",
	"txn date":            "date",
	"transaction date":    "date",
	"value date":          "date",
	"posting date":        "date",
	"tran date":           "date",
	"description":         "description",
	"narration":           "description",
	"particulars":         "description",
	"details":             "description",
	"transaction details": "description",
	"remarks":             "description",
	"amount":              "amount",
	"transaction amount":  "amount",
	"amount (inr)":        "amount",
	"debit":               "debit",
	"withdrawal":          "debit",
	"withdrawal amt":      "debit",
	"withdrawal amount":   "debit",
	"debit amount":        "debit",
	"dr":                  "debit",
	"credit":              "credit",
	"deposit":             "credit",
	"deposit amt":         "credit",
	"deposit amount":      "credit",
	"credit amount":       "credit",
	"cr":                  "credit",
}

// Adapter parses CSV statement exports.
type Adapter struct {
	logger logging.Logger
}

// New creates a CSV adapter.
func New(logger logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Adapter{logger: logger}
}

// Parse extracts raw records from a CSV export. Rows without a usable
// date or with no amount signal are skipped and reported as warnings,
// never as errors; a file whose header cannot be mapped fails whole.
func (a *Adapter) Parse(name string, data []byte) ([]models.RawRecord, []string, error) {
	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, nil, &procerr.InvalidFormatError{
			FileName:       name,
			ExpectedFormat: "UTF-8, windows-1252 or latin-1 encoded CSV",
			Msg:            err.Error(),
		}
	}

	canonical, hasSplitColumns, err := canonicalizeHeader(decoded)
	if err != nil {
		return nil, nil, &procerr.InvalidFormatError{
			FileName:       name,
			ExpectedFormat: "CSV with date, description and amount (or debit/credit) columns",
			Msg:            err.Error(),
		}
	}

	var rows []statementRow
	if err := gocsv.UnmarshalBytes(canonical, &rows); err != nil {
		return nil, nil, &procerr.InvalidFormatError{
			FileName:       name,
			ExpectedFormat: "well-formed CSV records",
			Msg:            err.Error(),
		}
	}

	var records []models.RawRecord
	var warnings []string
	for i, row := range rows {
		record, skip, reason := a.convertRow(row, hasSplitColumns)
		if skip {
			if reason != "" {
				warnings = append(warnings, fmt.Sprintf("%s row %d: %s", name, i+2, reason))
			}
			continue
		}
		records = append(records, record)
	}

	a.logger.Info("parsed CSV statement",
		logging.Field{Key: "file", Value: name},
		logging.Field{Key: "rows", Value: len(rows)},
		logging.Field{Key: "records", Value: len(records)},
		logging.Field{Key: "skipped", Value: len(rows) - len(records)})

	return records, warnings, nil
}

// convertRow maps one canonical row to a raw record. The second return
// marks a skipped row; the third carries the skip reason when the row
// looked like data (blank filler rows skip silently).
func (a *Adapter) convertRow(row statementRow, split bool) (models.RawRecord, bool, string) {
	date := strings.TrimSpace(row.Date)
	desc := strings.TrimSpace(row.Description)

	if date == "" && desc == "" {
		return models.RawRecord{}, true, ""
	}

	var amount string
	if split {
		amount = mergeDebitCredit(row.Debit, row.Credit)
	} else {
		amount = row.Amount
	}

	value := amountutils.Parse(amount)
	if amountutils.IsZero(value) {
		return models.RawRecord{}, true, "no amount signal"
	}

	if dateutils.IsPlaceholder(date) {
		// Kept: the pipeline substitutes the processing date downstream.
		date = ""
	}

	return models.RawRecord{
		Date:        date,
		Description: desc,
		Amount:      value,
	}, false, ""
}

// mergeDebitCredit folds split columns into one signed amount string.
// A populated debit column wins and is recorded as negative.
func mergeDebitCredit(debit, credit string) string {
	d := amountutils.Parse(debit)
	if !amountutils.IsZero(d) {
		return "-" + d.Abs().String()
	}
	c := amountutils.Parse(credit)
	if !amountutils.IsZero(c) {
		return c.Abs().String()
	}
	return ""
}

// canonicalizeHeader rewrites the header row to canonical column names
// and reports whether the export uses split debit/credit columns.
func canonicalizeHeader(data []byte) ([]byte, bool, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read header row: %w", err)
	}

	mapped := make([]string, len(header))
	seen := make(map[string]bool)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(col, "\uFEFF")))
		canonical, ok := headerSynonyms[key]
		if !ok || seen[canonical] {
			// Unknown and duplicate columns are carried through
			// untouched so gocsv ignores them.
			mapped[i] = fmt.Sprintf("extra_%d", i)
			continue
		}
		mapped[i] = canonical
		seen[canonical] = true
	}

	if !seen["date"] || !seen["description"] {
		return nil, false, fmt.Errorf("missing date or description column in header %v", header)
	}
	hasSplit := seen["debit"] || seen["credit"]
	if !seen["amount"] && !hasSplit {
		return nil, false, fmt.Errorf("no amount, debit or credit column in header %v", header)
	}

	var out bytes.Buffer
	writer := csv.NewWriter(&out)
	if err := writer.Write(mapped); err != nil {
		return nil, false, err
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("malformed CSV record: %w", err)
		}
		// Pad short rows so every record matches the header width.
		for len(record) < len(mapped) {
			record = append(record, "")
		}
		if err := writer.Write(record[:len(mapped)]); err != nil {
			return nil, false, err
		}
	}
	writer.Flush()
	return out.Bytes(), hasSplit, writer.Error()
}

// decodeToUTF8 returns the input as UTF-8 text, falling back to
// windows-1252 and then latin-1 for legacy bank exports.
func decodeToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	if e, _, _ := charset.DetermineEncoding(data, "text/csv"); e != nil {
		if decoded, err := e.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
			return decoded, nil
		}
	}

	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		if decoded, err := cm.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("unable to decode file contents to UTF-8")
}
