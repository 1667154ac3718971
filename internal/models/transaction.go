// Package models defines the canonical data structures shared across the
// statement processing pipeline: raw extracted records, classified
// transactions, and the aggregate views served to downstream consumers.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Downstream consumers read amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// RawRecord is the common output of all source adapters: one extracted
// (date, description, amount) triple before normalization/classification.
type RawRecord struct {
	Date        string
	Description string
	Amount      decimal.Decimal
}

// Transaction is the canonical classified transaction record.
// It is immutable once classified except for the recurrence flag,
// which recurrence detection may set (raising confidence with it).
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"` // canonical YYYY-MM-DD
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // signed: positive inflow, negative outflow
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Kind        TransactionKind `json:"type"`
	IsRecurring bool            `json:"is_recurring"`
	SourceFile  string          `json:"source_file"`
	Confidence  float64         `json:"confidence"`
}

// NewTransaction creates a Transaction with a generated id.
func NewTransaction(date, description string, amount decimal.Decimal, sourceFile string) Transaction {
	return Transaction{
		ID:          uuid.New().String(),
		Date:        date,
		Description: description,
		Amount:      amount,
		SourceFile:  sourceFile,
	}
}

// Classification is the result of categorizing one transaction.
type Classification struct {
	Category    string
	Subcategory string
	Kind        TransactionKind
	Confidence  float64
}

// Summary aggregates the whole transaction set of one session.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	NetSavings       decimal.Decimal `json:"net_savings"`
	TransactionCount int             `json:"transaction_count"`
	FileCount        int             `json:"file_count"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	ProcessingMs     int64           `json:"processing_ms"`
}

// CreditBehavior is derived purely from EMI and CreditCard transactions.
// The estimated bill/limit figures follow the credit analysis consumer's
// expectations: bills are payments plus a 3% buffer with a 50k floor, the
// limit a conservative 3x of bills.
type CreditBehavior struct {
	MonthlyEMIBurden      decimal.Decimal `json:"monthly_emi_burden"`
	TotalEMIPaid          decimal.Decimal `json:"total_emi_paid"`
	LoanTypes             []string        `json:"loan_types"`
	TotalCCPayments       decimal.Decimal `json:"total_cc_payments"`
	EstimatedCCBills      decimal.Decimal `json:"estimated_cc_bills"`
	EstimatedCreditLimit  decimal.Decimal `json:"credit_limit"`
	CCPaymentRatio        float64         `json:"cc_payment_ratio"`
	RecurringPaymentCount int             `json:"recurring_payment_count"`
	PaymentConsistency    float64         `json:"payment_consistency"`
}

// CategoryTotal is one line of an income or expense breakdown: the
// absolute total and transaction count for a single category.
type CategoryTotal struct {
	Category         string          `json:"category"`
	Total            decimal.Decimal `json:"total"`
	TransactionCount int             `json:"transaction_count"`
}

// TaxSavingInvestments breaks down tax-favored contributions.
type TaxSavingInvestments struct {
	C80Investments  decimal.Decimal `json:"80c_investments"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
}

// TaxRelevantData is derived purely from Income/Investment transactions
// plus Insurance-category outlays.
type TaxRelevantData struct {
	MonthlySalary         decimal.Decimal      `json:"monthly_salary"`
	EstimatedAnnualIncome decimal.Decimal      `json:"estimated_annual_income"`
	TaxSavingInvestments  TaxSavingInvestments `json:"tax_saving_investments"`
	InsurancePremiums     decimal.Decimal      `json:"insurance_premiums"`
	OtherIncome           decimal.Decimal      `json:"other_income"`
}

// Session is the unit of state produced by one file-submission batch.
// It is created atomically at the end of a processing run and never
// mutated afterwards; readers always see a complete record or nothing.
type Session struct {
	SessionID          string          `json:"session_id"`
	Transactions       []Transaction   `json:"transactions"` // date ascending
	Summary            Summary         `json:"summary"`
	IncomeView         []CategoryTotal `json:"income_view"`
	ExpenseView        []CategoryTotal `json:"expense_view"`
	CreditBehavior     CreditBehavior  `json:"credit_behavior"`
	TaxRelevantData    TaxRelevantData `json:"tax_relevant_data"`
	ProcessingErrors   []string        `json:"processing_errors"`
	ProcessingWarnings []string        `json:"processing_warnings"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TransactionsOfKind returns the subset of the session's transactions
// with any of the given kinds, preserving date order.
func (s *Session) TransactionsOfKind(kinds ...TransactionKind) []Transaction {
	want := make(map[TransactionKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	subset := []Transaction{}
	for _, tx := range s.Transactions {
		if want[tx.Kind] {
			subset = append(subset, tx)
		}
	}
	return subset
}
