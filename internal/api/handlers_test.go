package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/statement-hub/internal/classifier"
	"finsight/statement-hub/internal/config"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/pipeline"
	"finsight/statement-hub/internal/session"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Server.Address = ":0"
	cfg.Server.ReadTimeoutSec = 5
	cfg.Server.WriteTimeoutSec = 5
	cfg.Upload.MaxFileBytes = 1 << 20
	cfg.Upload.Extensions = []string{".csv", ".pdf"}
	cfg.Pipeline.Workers = 2
	cfg.Session.TTLMinutes = 30
	cfg.Session.SweepIntervalSeconds = 60
	return cfg
}

func newTestServer(t *testing.T) (*Server, *session.Store) {
	t.Helper()
	logger := &logging.MockLogger{}
	cls, err := classifier.New(logger)
	require.NoError(t, err)

	processor := pipeline.New(cls, pipeline.Options{Workers: 2}, logger)
	sessions := session.NewStore(0, 0, logger)
	return New(testConfig(), processor, sessions, logger), sessions
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func submitStatements(t *testing.T, server *Server, files map[string][]byte) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/process-statements", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", data)
}

var statementCSV = []byte("Date,Description,Amount\n" +
	"2024-01-31,ACME CORP SALARY JAN,85000.00\n" +
	"2024-01-05,HDFC HOME LOAN EMI,-32000.00\n" +
	"2024-01-12,CREDIT CARD PAYMENT,-45000.00\n" +
	"2024-01-15,LIC PREMIUM,-8000.00\n" +
	"2024-01-20,ELSS TAX SAVER SIP,-5000.00\n")

func TestProcessStatementsHappyPath(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{"jan.csv": statementCSV})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		SessionID string `json:"session_id"`
		Summary   struct {
			TransactionCount int     `json:"transaction_count"`
			TotalIncome      float64 `json:"total_income"`
		} `json:"summary"`
		CreditBehavior struct {
			TotalEMIPaid float64 `json:"total_emi_paid"`
		} `json:"credit_behavior"`
		IncomeView []struct {
			Category         string  `json:"category"`
			Total            float64 `json:"total"`
			TransactionCount int     `json:"transaction_count"`
		} `json:"income_view"`
		ExpenseView []struct {
			Category string  `json:"category"`
			Total    float64 `json:"total"`
		} `json:"expense_view"`
	}
	decodeJSON(t, resp, &payload)

	assert.NotEmpty(t, payload.SessionID)
	assert.Equal(t, 5, payload.Summary.TransactionCount)
	assert.Equal(t, 85000.0, payload.Summary.TotalIncome)
	assert.Equal(t, 32000.0, payload.CreditBehavior.TotalEMIPaid)

	require.Len(t, payload.IncomeView, 1)
	assert.Equal(t, "Salary", payload.IncomeView[0].Category)
	assert.Equal(t, 85000.0, payload.IncomeView[0].Total)
	assert.Equal(t, 1, payload.IncomeView[0].TransactionCount)

	// The EMI, card and investment outflows feed their own views; only
	// the insurance premium is a plain expense.
	require.Len(t, payload.ExpenseView, 1)
	assert.Equal(t, "Insurance", payload.ExpenseView[0].Category)
	assert.Equal(t, 8000.0, payload.ExpenseView[0].Total)
}

func TestProcessStatementsRejectsEmptySubmission(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/process-statements", bytes.NewReader(nil))
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessStatementsRejectsDisallowedExtension(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{"notes.txt": []byte("hello")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &payload)
	assert.Contains(t, payload.Error, "notes.txt")
}

func TestProcessStatementsBatchFatal(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{
		"empty.csv": []byte("not,a,statement\n"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var payload struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &payload)
	assert.Contains(t, payload.Error, "no transactions")
}

func TestProcessStatementsPartialFailure(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{
		"good.csv":   statementCSV,
		"broken.csv": []byte("not,a,statement\n"),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		ProcessingErrors []string `json:"processing_errors"`
	}
	decodeJSON(t, resp, &payload)
	require.Len(t, payload.ProcessingErrors, 1)
	assert.Contains(t, payload.ProcessingErrors[0], "broken.csv")
}

func TestCreditView(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{"jan.csv": statementCSV})
	var created struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, resp, &created)

	req := httptest.NewRequest(http.MethodGet, "/cibil-data/"+created.SessionID, nil)
	viewResp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, viewResp.StatusCode)

	var view struct {
		SessionID      string `json:"session_id"`
		CreditBehavior struct {
			TotalCCPayments float64 `json:"total_cc_payments"`
			CreditLimit     float64 `json:"credit_limit"`
		} `json:"credit_behavior"`
		MonthlySalary   float64           `json:"monthly_salary"`
		EMITransactions []json.RawMessage `json:"emi_transactions"`
		CCTransactions  []json.RawMessage `json:"cc_transactions"`
		RiskFlags       []string          `json:"risk_flags"`
	}
	decodeJSON(t, viewResp, &view)

	assert.Equal(t, created.SessionID, view.SessionID)
	assert.Equal(t, 85000.0, view.MonthlySalary)
	assert.Equal(t, 45000.0, view.CreditBehavior.TotalCCPayments)
	assert.Equal(t, 150000.0, view.CreditBehavior.CreditLimit)
	assert.Len(t, view.EMITransactions, 1)
	assert.Len(t, view.CCTransactions, 1)
	// 45000 against the 50000 billing floor is a 0.9 ratio: no flag.
	// The single-month EMI of 32000 is under half of the 85000 salary.
	assert.Empty(t, view.RiskFlags)
}

func TestCreditViewUnknownSession(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/cibil-data/bogus", nil)
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaxView(t *testing.T) {
	server, _ := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{"jan.csv": statementCSV})
	var created struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, resp, &created)

	req := httptest.NewRequest(http.MethodGet, "/tax-data/"+created.SessionID, nil)
	viewResp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, viewResp.StatusCode)

	var view struct {
		TaxRelevantData struct {
			MonthlySalary        float64 `json:"monthly_salary"`
			TaxSavingInvestments struct {
				C80Investments  float64 `json:"80c_investments"`
				TotalDeductions float64 `json:"total_deductions"`
			} `json:"tax_saving_investments"`
			InsurancePremiums float64 `json:"insurance_premiums"`
		} `json:"tax_relevant_data"`
		IncomeTransactions []json.RawMessage `json:"income_transactions"`
		DeductionEligible  []json.RawMessage `json:"deduction_eligible_expenses"`
	}
	decodeJSON(t, viewResp, &view)

	assert.Equal(t, 85000.0, view.TaxRelevantData.MonthlySalary)
	assert.Equal(t, 5000.0, view.TaxRelevantData.TaxSavingInvestments.C80Investments)
	assert.Equal(t, 8000.0, view.TaxRelevantData.InsurancePremiums)
	assert.Equal(t, 13000.0, view.TaxRelevantData.TaxSavingInvestments.TotalDeductions)
	assert.Len(t, view.IncomeTransactions, 1)
	// LIC premium and ELSS SIP both qualify.
	assert.Len(t, view.DeductionEligible, 2)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	server, sessions := newTestServer(t)

	resp := submitStatements(t, server, map[string][]byte{"jan.csv": statementCSV})
	var created struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, resp, &created)
	require.Equal(t, 1, sessions.Count())

	for i, wantDeleted := range []bool{true, false} {
		req := httptest.NewRequest(http.MethodDelete, "/session/"+created.SessionID, nil)
		delResp, err := server.App().Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, delResp.StatusCode, fmt.Sprintf("attempt %d", i))

		var payload struct {
			Deleted bool `json:"deleted"`
		}
		decodeJSON(t, delResp, &payload)
		assert.Equal(t, wantDeleted, payload.Deleted)
	}
	assert.Equal(t, 0, sessions.Count())
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Service  string `json:"service"`
		Version  string `json:"version"`
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	decodeJSON(t, resp, &payload)
	assert.Equal(t, "statement-hub", payload.Service)
	assert.Equal(t, Version, payload.Version)
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, 0, payload.Sessions)
}
