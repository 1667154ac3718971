package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finsight/statement-hub/internal/dateutils"
	"finsight/statement-hub/internal/models"
)

var (
	// ccBillUplift inflates observed card payments to estimate actual
	// billed amounts, assuming holders pay slightly under their bills.
	ccBillUplift = decimal.NewFromFloat(1.03)
	// ccBillFloor is the minimum estimated bill once any card payment
	// exists at all.
	ccBillFloor = decimal.NewFromInt(50000)
	// creditLimitMultiple estimates the sanctioned limit from billed
	// amounts.
	creditLimitMultiple = decimal.NewFromInt(3)
)

// buildSummary aggregates the batch-level totals over the final
// transaction list. Transactions are already date-sorted.
func buildSummary(transactions []models.Transaction, fileCount int, elapsed time.Duration) models.Summary {
	summary := models.Summary{
		TransactionCount: len(transactions),
		FileCount:        fileCount,
		ProcessingMs:     elapsed.Milliseconds(),
	}
	if len(transactions) > 0 {
		summary.StartDate = transactions[0].Date
		summary.EndDate = transactions[len(transactions)-1].Date
	}

	for _, tx := range transactions {
		if tx.Amount.IsPositive() {
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		} else {
			summary.TotalExpense = summary.TotalExpense.Add(tx.Amount.Abs())
		}
	}
	summary.NetSavings = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary
}

// buildCreditBehavior derives the lending-oriented view: EMI burden,
// loan mix, card payment behavior and payment consistency.
func buildCreditBehavior(transactions []models.Transaction) models.CreditBehavior {
	var cb models.CreditBehavior

	emiMonths := make(map[string]bool)
	loanTypes := make(map[string]bool)
	emiCount := 0
	emiRecurring := 0

	for _, tx := range transactions {
		// Only EMI and card transactions feed this view; recurring rent
		// or subscriptions must not leak into it.
		switch tx.Kind {
		case models.KindEMI:
			cb.TotalEMIPaid = cb.TotalEMIPaid.Add(tx.Amount.Abs())
			emiMonths[dateutils.MonthKey(tx.Date)] = true
			if tx.Subcategory != "" {
				loanTypes[tx.Subcategory] = true
			}
			emiCount++
			if tx.IsRecurring {
				emiRecurring++
				cb.RecurringPaymentCount++
			}
		case models.KindCreditCard:
			cb.TotalCCPayments = cb.TotalCCPayments.Add(tx.Amount.Abs())
			if tx.IsRecurring {
				cb.RecurringPaymentCount++
			}
		}
	}

	if len(emiMonths) > 0 {
		cb.MonthlyEMIBurden = cb.TotalEMIPaid.
			Div(decimal.NewFromInt(int64(len(emiMonths)))).Round(2)
	}

	cb.LoanTypes = make([]string, 0, len(loanTypes))
	for lt := range loanTypes {
		cb.LoanTypes = append(cb.LoanTypes, lt)
	}
	sort.Strings(cb.LoanTypes)

	if cb.TotalCCPayments.IsPositive() {
		estimated := cb.TotalCCPayments.Mul(ccBillUplift).Round(2)
		if estimated.LessThan(ccBillFloor) {
			estimated = ccBillFloor
		}
		cb.EstimatedCCBills = estimated
		cb.EstimatedCreditLimit = estimated.Mul(creditLimitMultiple)
		ratio, _ := cb.TotalCCPayments.Div(estimated).Round(4).Float64()
		cb.CCPaymentRatio = ratio
	}

	if emiCount > 0 {
		cb.PaymentConsistency = float64(emiRecurring) / float64(emiCount)
	}

	return cb
}

// buildCategoryView totals transactions of one kind per category,
// largest total first so the leading income sources and spending heads
// come out on top. Ties break on category name for stable output.
func buildCategoryView(transactions []models.Transaction, kind models.TransactionKind) []models.CategoryTotal {
	totals := make(map[string]*models.CategoryTotal)
	for _, tx := range transactions {
		if tx.Kind != kind {
			continue
		}
		entry, ok := totals[tx.Category]
		if !ok {
			entry = &models.CategoryTotal{Category: tx.Category}
			totals[tx.Category] = entry
		}
		entry.Total = entry.Total.Add(tx.Amount.Abs())
		entry.TransactionCount++
	}

	view := make([]models.CategoryTotal, 0, len(totals))
	for _, entry := range totals {
		view = append(view, *entry)
	}
	sort.Slice(view, func(i, j int) bool {
		if !view[i].Total.Equal(view[j].Total) {
			return view[i].Total.GreaterThan(view[j].Total)
		}
		return view[i].Category < view[j].Category
	})
	return view
}

// buildTaxData derives the tax-oriented view: salary estimates, 80C
// deductible investments and insurance premiums.
func buildTaxData(transactions []models.Transaction) models.TaxRelevantData {
	var tax models.TaxRelevantData

	salaryMonths := make(map[string]bool)
	var salaryTotal decimal.Decimal

	for _, tx := range transactions {
		switch {
		case tx.Kind == models.KindIncome && tx.Subcategory == models.SubcategorySalary:
			salaryTotal = salaryTotal.Add(tx.Amount)
			salaryMonths[dateutils.MonthKey(tx.Date)] = true
		case tx.Kind == models.KindIncome:
			tax.OtherIncome = tax.OtherIncome.Add(tx.Amount)
		case tx.Kind == models.KindInvestment && is80CEligible(tx.Subcategory):
			tax.TaxSavingInvestments.C80Investments =
				tax.TaxSavingInvestments.C80Investments.Add(tx.Amount.Abs())
		case tx.Category == models.CategoryInsurance:
			tax.InsurancePremiums = tax.InsurancePremiums.Add(tx.Amount.Abs())
		}
	}

	if len(salaryMonths) > 0 {
		tax.MonthlySalary = salaryTotal.
			Div(decimal.NewFromInt(int64(len(salaryMonths)))).Round(2)
		tax.EstimatedAnnualIncome = tax.MonthlySalary.Mul(decimal.NewFromInt(12))
	}

	tax.TaxSavingInvestments.TotalDeductions =
		tax.TaxSavingInvestments.C80Investments.Add(tax.InsurancePremiums)

	return tax
}

// is80CEligible reports whether an investment subcategory counts toward
// the 80C deduction bucket.
func is80CEligible(subcategory string) bool {
	switch subcategory {
	case models.SubcategoryTaxSaving, models.SubcategoryPFPPF:
		return true
	}
	return false
}
