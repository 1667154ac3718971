package models

// TransactionKind determines which downstream aggregate a transaction feeds.
type TransactionKind string

const (
	KindIncome     TransactionKind = "Income"
	KindExpense    TransactionKind = "Expense"
	KindEMI        TransactionKind = "EMI"
	KindCreditCard TransactionKind = "CreditCard"
	KindInvestment TransactionKind = "Investment"
)

// Categories assigned by the classifier rule set.
const (
	CategorySalary       = "Salary"
	CategoryOtherIncome  = "Other_Income"
	CategoryOtherExpense = "Other_Expense"
	CategoryEMI          = "EMI"
	CategoryCreditCard   = "Credit_Card"
	CategoryInvestment   = "Investment"
	CategoryInsurance    = "Insurance"
)

// Subcategories with downstream meaning. The tax view keys off
// SubcategorySalary, SubcategoryTaxSaving and SubcategoryPFPPF;
// the credit view keys off the loan subcategories.
const (
	SubcategorySalary        = "Salary"
	SubcategoryMiscellaneous = "Miscellaneous"
	SubcategoryTaxSaving     = "Tax_Saving"
	SubcategoryPFPPF         = "PF_PPF"
	SubcategoryHomeLoan      = "Home_Loan"
	SubcategoryCarLoan       = "Car_Loan"
	SubcategoryPersonalLoan  = "Personal_Loan"
	SubcategoryLifeInsurance = "Life_Insurance"
	SubcategoryHealthInsur   = "Health_Insurance"
)

// DefaultConfidence is attached to sign-based fallback classifications.
const DefaultConfidence = 0.3
