package docadapter

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"finsight/statement-hub/internal/amountutils"
	"finsight/statement-hub/internal/dateutils"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

const (
	// DefaultPageCap bounds how many pages a single document may
	// contribute; statements past the cap are truncated, not failed.
	DefaultPageCap = 10
	// DefaultRowCap bounds the rows taken from one document.
	DefaultRowCap = 500
)

// dateTokenRe finds the leading date token of a statement line. It is
// deliberately loose; dateutils decides whether the token is a date.
var dateTokenRe = regexp.MustCompile(`^(\d{1,4}[-/.]\w{1,9}[-/.]\d{2,4}|\d{1,2} \w{3,9},? \d{4})`)

// amountTokenRe finds the trailing amount token of a statement line,
// optionally followed by a CR/DR marker or a running balance column.
var amountTokenRe = regexp.MustCompile(`(?i)(\(?-?[\d,']+\.?\d*\)?\s*(?:CR|DR)?)\s*$`)

// TableExtractor parses row-structured PDF statements locally.
type TableExtractor struct {
	pageCap int
	rowCap  int
	logger  logging.Logger
}

// NewTableExtractor builds a local PDF table extractor. Non-positive
// caps fall back to the defaults.
func NewTableExtractor(pageCap, rowCap int, logger logging.Logger) *TableExtractor {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &TableExtractor{pageCap: pageCap, rowCap: rowCap, logger: logger}
}

// ParseDocument extracts transaction rows from a PDF held in memory.
// Lines that do not look like transaction rows (headers, footers,
// balance summaries) are skipped; rows with no amount signal are
// discarded.
func (e *TableExtractor) ParseDocument(ctx context.Context, name string, data []byte) (records []models.RawRecord, err error) {
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = &procerr.InvalidFormatError{
				FileName:       name,
				ExpectedFormat: "text-based PDF statement",
				Msg:            fmt.Sprintf("document reader panicked: %v", r),
			}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &procerr.InvalidFormatError{
			FileName:       name,
			ExpectedFormat: "text-based PDF statement",
			Msg:            err.Error(),
		}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, &procerr.InvalidFormatError{
			FileName:       name,
			ExpectedFormat: "text-based PDF statement",
			Msg:            "document has no pages",
		}
	}
	if numPages > e.pageCap {
		e.logger.Warn("document exceeds page cap, truncating",
			logging.Field{Key: "file", Value: name},
			logging.Field{Key: "pages", Value: numPages},
			logging.Field{Key: "cap", Value: e.pageCap})
		numPages = e.pageCap
	}

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Warn("failed to read page rows",
				logging.Field{Key: "file", Value: name},
				logging.Field{Key: "page", Value: i},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		for _, row := range rows {
			if len(records) >= e.rowCap {
				e.logger.Warn("document exceeds row cap, truncating",
					logging.Field{Key: "file", Value: name},
					logging.Field{Key: "cap", Value: e.rowCap})
				return records, nil
			}
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line == "" {
				continue
			}
			if record, ok := parseStatementLine(line); ok {
				records = append(records, record)
			}
		}
	}

	e.logger.Info("extracted PDF statement rows",
		logging.Field{Key: "file", Value: name},
		logging.Field{Key: "records", Value: len(records)})

	return records, nil
}

// parseStatementLine splits one text row into date, description and
// amount. A row qualifies only when it starts with a parseable date
// token and ends with a non-zero amount token.
func parseStatementLine(line string) (models.RawRecord, bool) {
	dateToken := dateTokenRe.FindString(line)
	if dateToken == "" {
		return models.RawRecord{}, false
	}
	if _, _, err := dateutils.ParseDate(dateToken); err != nil {
		return models.RawRecord{}, false
	}

	rest := strings.TrimSpace(line[len(dateToken):])
	loc := amountTokenRe.FindStringIndex(rest)
	if loc == nil {
		return models.RawRecord{}, false
	}

	amount := amountutils.Parse(rest[loc[0]:loc[1]])
	if amountutils.IsZero(amount) {
		return models.RawRecord{}, false
	}

	description := strings.TrimSpace(rest[:loc[0]])
	if description == "" {
		return models.RawRecord{}, false
	}

	return models.RawRecord{
		Date:        dateToken,
		Description: description,
		Amount:      amount,
	}, true
}
