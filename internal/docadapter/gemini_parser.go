package docadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"finsight/statement-hub/internal/amountutils"
	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
)

const statementPrompt = `You are a financial statement parser for bank and credit card PDF statements.

Task:
- Parse ALL transactions in the attached statement document.
- Output STRICT JSON only (no comments, no trailing commas, no extra text).
- Output a JSON array of objects.

Each object must have these fields:
- "date": string, ISO format "YYYY-MM-DD"
- "description": string
- "amount": number (positive for money IN, negative for money OUT)

Rules:
- If the statement has separate withdrawal/deposit columns, convert to a single signed "amount".
- Skip summary rows, opening and closing balances, and page headers.
- Return ONLY valid raw JSON.
- Do NOT wrap the response in code fences.
- Do NOT use Markdown.
- Output must begin with "[" and end with "]".`

// geminiRecord is the JSON row shape the model is instructed to emit.
type geminiRecord struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// GeminiParser extracts transaction rows from statement documents via
// the Gemini API. It is an optional fallback for layouts the local
// table extractor cannot read.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger logging.Logger
}

// NewGeminiParser creates a Gemini-backed document parser.
func NewGeminiParser(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GeminiParser, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiParser{
		client: client,
		model:  client.GenerativeModel(modelName),
		logger: logger,
	}, nil
}

// Close releases the underlying API client.
func (p *GeminiParser) Close() error {
	return p.client.Close()
}

// ParseDocument sends the document to the model and decodes its strict
// JSON reply into raw records. Rows with no amount signal are dropped.
func (p *GeminiParser) ParseDocument(ctx context.Context, name string, data []byte) ([]models.RawRecord, error) {
	p.logger.Info("parsing document with Gemini",
		logging.Field{Key: "file", Value: name},
		logging.Field{Key: "bytes", Value: len(data)})

	resp, err := p.model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: data},
		genai.Text(statementPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini request for '%s' failed: %w", name, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty gemini response for '%s'", name)
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	payload := stripCodeFences(text)

	var rows []geminiRecord
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return nil, fmt.Errorf("gemini response for '%s' is not valid JSON: %w", name, err)
	}

	records := make([]models.RawRecord, 0, len(rows))
	for _, row := range rows {
		if amountutils.IsZero(row.Amount) {
			continue
		}
		records = append(records, models.RawRecord{
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
		})
	}

	p.logger.Info("gemini parse complete",
		logging.Field{Key: "file", Value: name},
		logging.Field{Key: "records", Value: len(records)})

	return records, nil
}

// stripCodeFences removes Markdown code fences the model sometimes
// emits despite instructions.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
