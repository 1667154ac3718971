package api

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"finsight/statement-hub/internal/models"
	"finsight/statement-hub/internal/pipeline"
	"finsight/statement-hub/internal/procerr"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// submitResponse is returned by POST /process-statements.
type submitResponse struct {
	SessionID          string                 `json:"session_id"`
	Summary            models.Summary         `json:"summary"`
	IncomeView         []models.CategoryTotal `json:"income_view"`
	ExpenseView        []models.CategoryTotal `json:"expense_view"`
	CreditBehavior     models.CreditBehavior  `json:"credit_behavior"`
	TaxRelevantData    models.TaxRelevantData `json:"tax_relevant_data"`
	ProcessingErrors   []string               `json:"processing_errors"`
	ProcessingWarnings []string               `json:"processing_warnings"`
}

// creditViewResponse is returned by GET /cibil-data/:session_id.
// MonthlySalary is duplicated at the top level because credit scoring
// consumers read it alongside the EMI burden.
type creditViewResponse struct {
	SessionID       string                `json:"session_id"`
	CreditBehavior  models.CreditBehavior `json:"credit_behavior"`
	Summary         models.Summary        `json:"summary"`
	MonthlySalary   decimal.Decimal       `json:"monthly_salary"`
	EMITransactions []models.Transaction  `json:"emi_transactions"`
	CCTransactions  []models.Transaction  `json:"cc_transactions"`
	RiskFlags       []string              `json:"risk_flags"`
}

// taxViewResponse is returned by GET /tax-data/:session_id.
type taxViewResponse struct {
	SessionID          string                 `json:"session_id"`
	TaxRelevantData    models.TaxRelevantData `json:"tax_relevant_data"`
	Summary            models.Summary         `json:"summary"`
	IncomeTransactions []models.Transaction   `json:"income_transactions"`
	Investments        []models.Transaction   `json:"investment_transactions"`
	DeductionEligible  []models.Transaction   `json:"deduction_eligible_expenses"`
}

// handleProcessStatements accepts a multipart batch of statement files,
// runs the pipeline and publishes the result as a new session.
func (s *Server) handleProcessStatements(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "expected multipart form data with a 'files' field",
		})
	}

	uploads := form.File["files"]
	if len(uploads) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: "no files submitted",
		})
	}

	var files []pipeline.InputFile
	var rejections []string
	for _, header := range uploads {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !s.cfg.ExtensionAllowed(ext) {
			rejections = append(rejections, (&procerr.FileRejectedError{
				FileName: header.Filename,
				Reason:   fmt.Sprintf("extension '%s' not allowed", ext),
			}).Error())
			continue
		}
		if header.Size > s.cfg.Upload.MaxFileBytes {
			rejections = append(rejections, (&procerr.FileRejectedError{
				FileName: header.Filename,
				Reason: fmt.Sprintf("file size %d exceeds limit of %d bytes",
					header.Size, s.cfg.Upload.MaxFileBytes),
			}).Error())
			continue
		}

		f, err := header.Open()
		if err != nil {
			rejections = append(rejections, (&procerr.FileRejectedError{
				FileName: header.Filename,
				Reason:   fmt.Sprintf("could not read upload: %v", err),
			}).Error())
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			rejections = append(rejections, (&procerr.FileRejectedError{
				FileName: header.Filename,
				Reason:   fmt.Sprintf("could not read upload: %v", err),
			}).Error())
			continue
		}
		files = append(files, pipeline.InputFile{Name: header.Filename, Data: data})
	}

	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: fmt.Sprintf("no processable files in submission: %s",
				strings.Join(rejections, "; ")),
		})
	}

	result, err := s.processor.Process(c.Context(), files)
	if err != nil {
		if _, ok := err.(*procerr.NoTransactionsError); ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
				Error: err.Error(),
			})
		}
		s.logger.WithError(err).Error("batch processing failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Error: "internal processing failure",
		})
	}

	sess := &models.Session{
		Transactions:       result.Transactions,
		Summary:            result.Summary,
		IncomeView:         result.Income,
		ExpenseView:        result.Expenses,
		CreditBehavior:     result.Credit,
		TaxRelevantData:    result.Tax,
		ProcessingErrors:   append(rejections, result.Errors...),
		ProcessingWarnings: result.Warnings,
	}
	id := s.sessions.Create(sess)

	return c.Status(fiber.StatusOK).JSON(submitResponse{
		SessionID:          id,
		Summary:            sess.Summary,
		IncomeView:         sess.IncomeView,
		ExpenseView:        sess.ExpenseView,
		CreditBehavior:     sess.CreditBehavior,
		TaxRelevantData:    sess.TaxRelevantData,
		ProcessingErrors:   sess.ProcessingErrors,
		ProcessingWarnings: sess.ProcessingWarnings,
	})
}

// handleCreditView serves the lending-oriented session view.
func (s *Server) handleCreditView(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c.Params("session_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(creditViewResponse{
		SessionID:       sess.SessionID,
		CreditBehavior:  sess.CreditBehavior,
		Summary:         sess.Summary,
		MonthlySalary:   sess.TaxRelevantData.MonthlySalary,
		EMITransactions: sess.TransactionsOfKind(models.KindEMI),
		CCTransactions:  sess.TransactionsOfKind(models.KindCreditCard),
		RiskFlags:       riskFlags(sess),
	})
}

// handleTaxView serves the tax-oriented session view.
func (s *Server) handleTaxView(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c.Params("session_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: err.Error()})
	}

	return c.JSON(taxViewResponse{
		SessionID:          sess.SessionID,
		TaxRelevantData:    sess.TaxRelevantData,
		Summary:            sess.Summary,
		IncomeTransactions: sess.TransactionsOfKind(models.KindIncome),
		Investments:        sess.TransactionsOfKind(models.KindInvestment),
		DeductionEligible:  deductionEligible(sess.Transactions),
	})
}

// handleDeleteSession removes a session. The operation is idempotent;
// deleting an unknown session still succeeds.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := c.Params("session_id")
	deleted := s.sessions.Delete(id)
	return c.JSON(fiber.Map{
		"session_id": id,
		"deleted":    deleted,
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":  "statement-hub",
		"version":  Version,
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

// riskFlags derives advisory flags from the credit view.
func riskFlags(sess *models.Session) []string {
	flags := []string{}
	cb := sess.CreditBehavior

	if cb.TotalCCPayments.IsPositive() && cb.CCPaymentRatio < 0.8 {
		flags = append(flags, "payment ratio below 0.8")
	}
	salary := sess.TaxRelevantData.MonthlySalary
	if salary.IsPositive() && cb.MonthlyEMIBurden.GreaterThan(salary.Div(decimal.NewFromInt(2))) {
		flags = append(flags, "EMI burden exceeds 50% of monthly income")
	}
	return flags
}

// deductionEligible selects expenses that plausibly reduce taxable
// income: insurance and investment outflows, plus anything explicitly
// tagged as tax saving.
func deductionEligible(transactions []models.Transaction) []models.Transaction {
	eligible := []models.Transaction{}
	for _, tx := range transactions {
		if !tx.Amount.IsNegative() {
			continue
		}
		switch {
		case tx.Category == models.CategoryInsurance,
			tx.Category == models.CategoryInvestment,
			strings.Contains(strings.ToLower(tx.Subcategory), "tax"):
			eligible = append(eligible, tx)
		}
	}
	return eligible
}
