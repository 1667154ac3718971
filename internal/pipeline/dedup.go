package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finsight/statement-hub/internal/models"
)

// dedupKeyLen bounds the description prefix used in duplicate keys so
// banks that truncate narrations differently still collide.
const dedupKeyLen = 30

var (
	digitsRe      = regexp.MustCompile(`\d+`)
	punctSpacesRe = regexp.MustCompile(`[^a-z]+`)
)

// deduplicate removes repeated transactions, keeping the first
// occurrence in input order. Two transactions are duplicates when they
// share a date, an amount rounded to two decimals and a normalized
// description prefix.
func deduplicate(transactions []models.Transaction) ([]models.Transaction, int) {
	seen := make(map[string]bool, len(transactions))
	kept := make([]models.Transaction, 0, len(transactions))

	for _, tx := range transactions {
		desc := strings.ToLower(strings.TrimSpace(tx.Description))
		if len(desc) > dedupKeyLen {
			desc = desc[:dedupKeyLen]
		}
		key := fmt.Sprintf("%s|%s|%s", tx.Date, tx.Amount.Round(2).String(), desc)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, tx)
	}
	return kept, len(transactions) - len(kept)
}

// recurrenceBucket is the grouping key for recurrence detection.
// Digits are stripped from the description so reference numbers do not
// split a recurring payment into singletons, and amounts are bucketed
// to the nearest thousand to absorb small EMI revisions.
func recurrenceBucket(tx models.Transaction) string {
	desc := strings.ToLower(tx.Description)
	desc = digitsRe.ReplaceAllString(desc, "")
	desc = strings.TrimSpace(punctSpacesRe.ReplaceAllString(desc, " "))

	bucket := tx.Amount.Abs().Div(decimal.NewFromInt(1000)).Round(0)
	return fmt.Sprintf("%s|%s|%s", desc, bucket.String(), tx.Kind)
}

// markRecurring flags transactions that belong to a recurring series:
// at least three group members whose dates span more than thirty days.
// Flagged transactions get a small confidence boost, capped at 1.0.
func markRecurring(transactions []models.Transaction) {
	groups := make(map[string][]int)
	for i, tx := range transactions {
		key := recurrenceBucket(tx)
		groups[key] = append(groups[key], i)
	}

	for _, members := range groups {
		if len(members) < 3 {
			continue
		}
		minDate, maxDate := transactions[members[0]].Date, transactions[members[0]].Date
		for _, idx := range members[1:] {
			d := transactions[idx].Date
			if d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
		if !spansMoreThanThirtyDays(minDate, maxDate) {
			continue
		}
		for _, idx := range members {
			transactions[idx].IsRecurring = true
			transactions[idx].Confidence += 0.1
			if transactions[idx].Confidence > 1.0 {
				transactions[idx].Confidence = 1.0
			}
		}
	}
}

func spansMoreThanThirtyDays(minDate, maxDate string) bool {
	start, err1 := time.Parse("2006-01-02", minDate)
	end, err2 := time.Parse("2006-01-02", maxDate)
	if err1 != nil || err2 != nil {
		return false
	}
	return end.Sub(start).Hours() > 30*24
}
