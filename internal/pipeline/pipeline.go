// Package pipeline turns a batch of uploaded statement files into a
// fully processed session: parsed, normalized, classified, deduplicated
// and aggregated into the summary, credit behavior and tax views.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"finsight/statement-hub/internal/classifier"
	"finsight/statement-hub/internal/csvadapter"
	"finsight/statement-hub/internal/dateutils"
	"finsight/statement-hub/internal/docadapter"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/procerr"
)

// InputFile is one uploaded statement held in memory.
type InputFile struct {
	Name string
	Data []byte
}

// Result carries everything a finished batch produced, including the
// per-file errors and per-row warnings accumulated along the way.
type Result struct {
	Transactions []models.Transaction
	Summary      models.Summary
	Income       []models.CategoryTotal
	Expenses     []models.CategoryTotal
	Credit       models.CreditBehavior
	Tax          models.TaxRelevantData
	Errors       []string
	Warnings     []string
}

// Processor runs statement batches through the full pipeline.
type Processor struct {
	csv      *csvadapter.Adapter
	doc      docadapter.DocumentParser
	classify *classifier.Classifier
	workers  int
	logger   logging.Logger
	nowFn    func() time.Time
}

// Options configures a Processor.
type Options struct {
	// Workers bounds how many files are parsed concurrently.
	// Values below 1 mean sequential processing.
	Workers int
	// DocParser handles PDF files. When nil, PDF files fail with an
	// invalid format error and the rest of the batch proceeds.
	DocParser docadapter.DocumentParser
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// New builds a Processor around a classifier and a CSV adapter.
func New(cls *classifier.Classifier, opts Options, logger logging.Logger) *Processor {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Processor{
		csv:      csvadapter.New(logger),
		doc:      opts.DocParser,
		classify: cls,
		workers:  workers,
		logger:   logger,
		nowFn:    nowFn,
	}
}

// fileOutcome is the fan-in unit of one parsed file.
type fileOutcome struct {
	index        int
	transactions []models.Transaction
	warnings     []string
	err          error
}

// Process runs the whole batch. Files are parsed in parallel under the
// worker bound; a file that fails contributes an error and nothing
// else, and the batch only fails when no file yields any transaction.
func (p *Processor) Process(ctx context.Context, files []InputFile) (*Result, error) {
	started := p.nowFn()
	processingDate := started.Format("2006-01-02")

	fileChan := make(chan int, len(files))
	outcomeChan := make(chan fileOutcome, len(files))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				outcomeChan <- p.processFile(ctx, files[idx], idx, processingDate)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(outcomeChan)
	}()

	outcomes := make([]fileOutcome, 0, len(files))
	for outcome := range outcomeChan {
		outcomes = append(outcomes, outcome)
	}
	// Keep error and warning order stable regardless of which worker
	// finished first.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].index < outcomes[j].index })

	result := &Result{}
	var transactions []models.Transaction
	succeeded := 0
	for _, outcome := range outcomes {
		result.Warnings = append(result.Warnings, outcome.warnings...)
		if outcome.err != nil {
			result.Errors = append(result.Errors, outcome.err.Error())
			continue
		}
		transactions = append(transactions, outcome.transactions...)
		succeeded++
	}

	if len(transactions) == 0 {
		return nil, &procerr.NoTransactionsError{FileCount: len(files)}
	}

	transactions, dropped := deduplicate(transactions)
	if dropped > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d duplicate transaction(s) removed", dropped))
	}
	markRecurring(transactions)
	sortByDate(transactions)

	result.Transactions = transactions
	result.Summary = buildSummary(transactions, succeeded, time.Since(started))
	result.Income = buildCategoryView(transactions, models.KindIncome)
	result.Expenses = buildCategoryView(transactions, models.KindExpense)
	result.Credit = buildCreditBehavior(transactions)
	result.Tax = buildTaxData(transactions)

	p.logger.Info("batch processed",
		logging.Field{Key: "files", Value: len(files)},
		logging.Field{Key: "parsed_files", Value: succeeded},
		logging.Field{Key: "transactions", Value: len(transactions)},
		logging.Field{Key: "errors", Value: len(result.Errors)},
		logging.Field{Key: "warnings", Value: len(result.Warnings)})

	return result, nil
}

// processFile parses one file, isolating panics so a poisoned document
// never takes the batch down.
func (p *Processor) processFile(ctx context.Context, file InputFile, index int, processingDate string) (outcome fileOutcome) {
	outcome.index = index
	defer func() {
		if r := recover(); r != nil {
			outcome.transactions = nil
			outcome.err = fmt.Errorf("processing of '%s' panicked: %v", file.Name, r)
		}
	}()

	var records []models.RawRecord
	var warnings []string
	var err error

	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".csv":
		records, warnings, err = p.csv.Parse(file.Name, file.Data)
	case ".pdf":
		if p.doc == nil {
			err = &procerr.InvalidFormatError{
				FileName:       file.Name,
				ExpectedFormat: "CSV statement export",
				Msg:            "no document parser configured for PDF files",
			}
		} else {
			records, err = p.doc.ParseDocument(ctx, file.Name, file.Data)
		}
	default:
		err = &procerr.InvalidFormatError{
			FileName:       file.Name,
			ExpectedFormat: ".csv or .pdf statement export",
			Msg:            "unsupported file extension",
		}
	}

	outcome.warnings = warnings
	if err != nil {
		outcome.err = err
		return outcome
	}

	outcome.transactions = p.normalize(records, file.Name, processingDate, &outcome.warnings)
	return outcome
}

// normalize converts raw records into classified transactions. Records
// with no amount signal are dropped; records with an unusable date fall
// back to the processing date and leave a warning behind.
func (p *Processor) normalize(records []models.RawRecord, sourceFile, processingDate string, warnings *[]string) []models.Transaction {
	transactions := make([]models.Transaction, 0, len(records))
	fallback, _ := time.Parse("2006-01-02", processingDate)

	for _, record := range records {
		if record.Amount.Round(2).IsZero() {
			continue
		}

		date, usedFallback := dateutils.Normalize(record.Date, fallback)
		if usedFallback {
			*warnings = append(*warnings, fmt.Sprintf(
				"%s: unparseable date '%s', using processing date", sourceFile, record.Date))
		}

		tx := models.NewTransaction(date, record.Description, record.Amount, sourceFile)
		cls := p.classify.Classify(record.Description, record.Amount)
		tx.Category = cls.Category
		tx.Subcategory = cls.Subcategory
		tx.Kind = cls.Kind
		tx.Confidence = cls.Confidence
		transactions = append(transactions, tx)
	}
	return transactions
}

func sortByDate(transactions []models.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date < transactions[j].Date
	})
}
