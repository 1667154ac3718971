package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/statement-hub/internal/classifier"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

// stubDocParser serves canned records or fails on demand.
type stubDocParser struct {
	records []models.RawRecord
	err     error
	panics  bool
}

func (s *stubDocParser) ParseDocument(ctx context.Context, name string, data []byte) ([]models.RawRecord, error) {
	if s.panics {
		panic("stub parser exploded")
	}
	return s.records, s.err
}

func newTestProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	cls, err := classifier.New(&logging.MockLogger{})
	require.NoError(t, err)
	if opts.Now == nil {
		opts.Now = func() time.Time {
			return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
		}
	}
	return New(cls, opts, &logging.MockLogger{})
}

func sampleCSV() []byte {
	return []byte("Date,Description,Amount\n" +
		"2024-01-31,ACME CORP SALARY JAN,85000.00\n" +
		"2024-02-29,ACME CORP SALARY FEB,85000.00\n" +
		"2024-01-05,HDFC HOME LOAN EMI 001,-32000.00\n" +
		"2024-02-05,HDFC HOME LOAN EMI 002,-32000.00\n" +
		"2024-03-05,HDFC HOME LOAN EMI 003,-32000.00\n" +
		"2024-02-12,CREDIT CARD PAYMENT,-45000.00\n")
}

func TestProcessEndToEnd(t *testing.T) {
	p := newTestProcessor(t, Options{Workers: 2})

	result, err := p.Process(context.Background(), []InputFile{
		{Name: "statement.csv", Data: sampleCSV()},
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 6)

	// Output is sorted by date ascending.
	assert.True(t, sort.SliceIsSorted(result.Transactions, func(i, j int) bool {
		return result.Transactions[i].Date < result.Transactions[j].Date
	}))

	// The EMI series qualifies as recurring: three members over 60 days.
	var emis []models.Transaction
	for _, txn := range result.Transactions {
		if txn.Kind == models.KindEMI {
			emis = append(emis, txn)
			assert.True(t, txn.IsRecurring, txn.Description)
		}
	}
	require.Len(t, emis, 3)

	assert.True(t, result.Summary.TotalIncome.Equal(decimal.NewFromInt(170000)))
	assert.True(t, result.Credit.TotalEMIPaid.Equal(decimal.NewFromInt(96000)))
	assert.True(t, result.Credit.MonthlyEMIBurden.Equal(decimal.NewFromInt(32000)))
	assert.True(t, result.Tax.MonthlySalary.Equal(decimal.NewFromInt(85000)))
	assert.Empty(t, result.Errors)
}

func TestProcessDateFallbackWarning(t *testing.T) {
	p := newTestProcessor(t, Options{})

	data := []byte("Date,Description,Amount\n" +
		"nan,MYSTERY PAYMENT,-500.00\n")
	result, err := p.Process(context.Background(), []InputFile{
		{Name: "odd.csv", Data: data},
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	// Falls back to the processing date supplied by the stub clock.
	assert.Equal(t, "2024-06-15", result.Transactions[0].Date)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "using processing date")
}

func TestProcessIsolatesFailingFiles(t *testing.T) {
	p := newTestProcessor(t, Options{Workers: 4})

	result, err := p.Process(context.Background(), []InputFile{
		{Name: "good.csv", Data: sampleCSV()},
		{Name: "broken.csv", Data: []byte("not,a,statement\n1,2,3\n")},
		{Name: "unsupported.txt", Data: []byte("hello")},
	})
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 6)
	require.Len(t, result.Errors, 2)
	// Error order follows submission order regardless of worker timing.
	assert.Contains(t, result.Errors[0], "broken.csv")
	assert.Contains(t, result.Errors[1], "unsupported.txt")
}

func TestProcessBatchFatalWhenNothingParses(t *testing.T) {
	p := newTestProcessor(t, Options{})

	_, err := p.Process(context.Background(), []InputFile{
		{Name: "a.csv", Data: []byte("garbage")},
		{Name: "b.csv", Data: []byte("also,garbage\n")},
	})
	require.Error(t, err)
	var noTx *procerr.NoTransactionsError
	require.ErrorAs(t, err, &noTx)
	assert.Equal(t, 2, noTx.FileCount)
}

func TestProcessPDFWithoutParserConfigured(t *testing.T) {
	p := newTestProcessor(t, Options{})

	_, err := p.Process(context.Background(), []InputFile{
		{Name: "statement.pdf", Data: []byte("%PDF-1.4")},
	})
	require.Error(t, err)
	var noTx *procerr.NoTransactionsError
	assert.ErrorAs(t, err, &noTx)
}

func TestProcessPDFDelegatesToDocParser(t *testing.T) {
	stub := &stubDocParser{records: []models.RawRecord{
		{Date: "2024-03-01", Description: "LIC PREMIUM", Amount: decimal.NewFromInt(-8000)},
	}}
	p := newTestProcessor(t, Options{DocParser: stub})

	result, err := p.Process(context.Background(), []InputFile{
		{Name: "statement.pdf", Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, models.CategoryInsurance, result.Transactions[0].Category)
	assert.Equal(t, "statement.pdf", result.Transactions[0].SourceFile)
}

func TestProcessCapturesParserPanics(t *testing.T) {
	stub := &stubDocParser{panics: true}
	p := newTestProcessor(t, Options{DocParser: stub, Workers: 2})

	result, err := p.Process(context.Background(), []InputFile{
		{Name: "good.csv", Data: sampleCSV()},
		{Name: "poison.pdf", Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 6)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "panicked")
	assert.Contains(t, result.Errors[0], "poison.pdf")
}

func TestProcessDeduplicatesAcrossFiles(t *testing.T) {
	p := newTestProcessor(t, Options{Workers: 2})

	data := []byte("Date,Description,Amount\n" +
		"2024-01-31,ACME CORP SALARY JAN,85000.00\n")
	result, err := p.Process(context.Background(), []InputFile{
		{Name: "jan-a.csv", Data: data},
		{Name: "jan-b.csv", Data: data},
	})
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	assert.Contains(t, fmt.Sprint(result.Warnings), "duplicate")
}
