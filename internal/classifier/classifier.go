// Package classifier assigns a category, subcategory, transaction kind
// and confidence score to each transaction using local keyword rules
// loaded from an embedded YAML file. Every rule is evaluated against a
// description and the highest-confidence match wins; when no rule
// matches, a sign-based fallback classification is used.
package classifier

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"finsight/statement-hub/internal/logging"
	"finsight/statement-hub/internal/models"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// memoKeyLen bounds the description prefix used as the memo cache key.
const memoKeyLen = 30

// Rule is one keyword rule from the rules file.
type Rule struct {
	Name        string                 `yaml:"name"`
	Keywords    []string               `yaml:"keywords"`
	Category    string                 `yaml:"category"`
	Subcategory string                 `yaml:"subcategory"`
	Kind        models.TransactionKind `yaml:"kind"`
	Confidence  float64                `yaml:"confidence"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Classifier evaluates keyword rules against transaction descriptions.
// Each instance owns its own memoization cache, so concurrent pipelines
// never share classification state.
type Classifier struct {
	rules  []Rule
	logger logging.Logger

	memoMu sync.RWMutex
	memo   map[string]models.Classification
}

// New builds a Classifier from the embedded default rule set.
func New(logger logging.Logger) (*Classifier, error) {
	return NewFromYAML(defaultRulesYAML, logger)
}

// NewFromYAML builds a Classifier from a caller-supplied rules document.
func NewFromYAML(data []byte, logger logging.Logger) (*Classifier, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse classification rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("classification rules file contains no rules")
	}

	// Lowercase keywords once so matching is a plain substring check.
	for i := range rf.Rules {
		for j, kw := range rf.Rules[i].Keywords {
			rf.Rules[i].Keywords[j] = strings.ToLower(kw)
		}
	}

	logger.Debug("loaded classification rules",
		logging.Field{Key: "rules", Value: len(rf.Rules)})

	return &Classifier{
		rules:  rf.Rules,
		logger: logger,
		memo:   make(map[string]models.Classification),
	}, nil
}

// RuleCount reports how many rules the classifier carries.
func (c *Classifier) RuleCount() int {
	return len(c.rules)
}

// ResetCache drops all memoized classifications.
func (c *Classifier) ResetCache() {
	c.memoMu.Lock()
	c.memo = make(map[string]models.Classification)
	c.memoMu.Unlock()
}

// Classify returns the best classification for a description and signed
// amount. All rules are evaluated and the highest confidence wins; ties
// keep the earlier rule in file order.
func (c *Classifier) Classify(description string, amount decimal.Decimal) models.Classification {
	key := memoKey(description)

	c.memoMu.RLock()
	cached, ok := c.memo[key]
	c.memoMu.RUnlock()
	if ok {
		return cached
	}

	result := c.classify(description, amount)

	c.memoMu.Lock()
	c.memo[key] = result
	c.memoMu.Unlock()

	return result
}

func (c *Classifier) classify(description string, amount decimal.Decimal) models.Classification {
	desc := strings.ToLower(description)

	var best *Rule
	for i := range c.rules {
		rule := &c.rules[i]
		if !rule.matches(desc) {
			continue
		}
		if best == nil || rule.Confidence > best.Confidence {
			best = rule
		}
	}

	if best == nil {
		return fallbackClassification(amount)
	}

	return models.Classification{
		Category:    best.Category,
		Subcategory: best.Subcategory,
		Kind:        best.Kind,
		Confidence:  best.Confidence,
	}
}

func (r *Rule) matches(lowerDesc string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerDesc, kw) {
			return true
		}
	}
	return false
}

// fallbackClassification assigns a sign-based bucket when no keyword
// rule matched: positive amounts are generic income, everything else a
// generic expense, both at the default low confidence.
func fallbackClassification(amount decimal.Decimal) models.Classification {
	category := models.CategoryOtherExpense
	kind := models.KindExpense
	if amount.IsPositive() {
		category = models.CategoryOtherIncome
		kind = models.KindIncome
	}
	return models.Classification{
		Category:    category,
		Subcategory: models.SubcategoryMiscellaneous,
		Kind:        kind,
		Confidence:  models.DefaultConfidence,
	}
}

// memoKey normalizes a description to its cache key: trimmed, lowered
// and truncated so near-identical narrations share one entry.
func memoKey(description string) string {
	key := strings.ToLower(strings.TrimSpace(description))
	if len(key) > memoKeyLen {
		key = key[:memoKeyLen]
	}
	return key
}
