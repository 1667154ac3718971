// Package docadapter extracts raw transaction records from PDF
// statement exports. A local table extractor handles well-structured
// statements; an optional Gemini-backed parser handles layouts the
// extractor cannot read.
package docadapter

import (
	"context"

	"finsight/statement-hub/internal/models"
)

// DocumentParser extracts raw transaction records from a statement
// document held in memory.
type DocumentParser interface {
	ParseDocument(ctx context.Context, name string, data []byte) ([]models.RawRecord, error)
}
