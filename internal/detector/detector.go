// Package detector implements the classification pipeline: pure detectors
// that scan evidence text and metadata for personal data categories, and
// the aggregator that folds their output into findings.
package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// Detector type names, stable for audit and the export detector summary.
const (
	DetectorContact   = "contact"
	DetectorFinancial = "financial"
	DetectorIdentity  = "identity"
	DetectorLexicon   = "lexicon"
	DetectorRule      = "rule"
)

const maxConfidence = 0.99

// confidence is deterministic given the same input: a fixed base per
// detector plus a small increment per distinct match.
func confidence(base float64, distinct int) float64 {
	c := base + 0.02*float64(distinct-1)
	if c > maxConfidence {
		c = maxConfidence
	}

	return c
}

// Detect runs every built-in detector over the text and returns zero or one
// result per detector type. Empty input yields no results.
func Detect(text string) []objects.DetectorResult {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var results []objects.DetectorResult

	if r, ok := detectContact(text); ok {
		results = append(results, r)
	}

	if r, ok := detectFinancial(text); ok {
		results = append(results, r)
	}

	if r, ok := detectIdentity(text); ok {
		results = append(results, r)
	}

	if r, ok := detectLexicons(text); ok {
		results = append(results, r)
	}

	return results
}

func detectContact(text string) (objects.DetectorResult, bool) {
	emails := matchAll(emailPattern, text)
	phones := matchAll(phonePattern, text)

	if len(emails) == 0 && len(phones) == 0 {
		return objects.DetectorResult{}, false
	}

	var elements []objects.DetectedElement
	if len(emails) > 0 {
		elements = append(elements, objects.DetectedElement{
			Type:  "email",
			Value: maskEmail(emails[0]),
			Count: len(emails),
		})
	}

	if len(phones) > 0 {
		elements = append(elements, objects.DetectedElement{
			Type:  "phone",
			Value: maskTail(phones[0], 3),
			Count: len(phones),
		})
	}

	distinct := len(emails) + len(phones)

	return objects.DetectorResult{
		Detector: DetectorContact,
		Elements: elements,
		Categories: []objects.CategoryConfidence{
			{Category: objects.CategoryContact, Confidence: confidence(0.90, distinct)},
		},
		// More than one distinct mailbox in subject-scoped evidence hints
		// at third-party data.
		ThirdPartySuspected: len(emails) > 1,
		Severity:            objects.SeverityInfo,
	}, true
}

func detectFinancial(text string) (objects.DetectorResult, bool) {
	ibans := matchAll(ibanPattern, text)

	cards := make([]string, 0)
	for _, candidate := range matchAll(cardPattern, text) {
		if luhnValid(candidate) {
			cards = append(cards, candidate)
		}
	}

	if len(ibans) == 0 && len(cards) == 0 {
		return objects.DetectorResult{}, false
	}

	var elements []objects.DetectedElement
	if len(ibans) > 0 {
		elements = append(elements, objects.DetectedElement{
			Type:  "iban",
			Value: maskTail(ibans[0], 4),
			Count: len(ibans),
		})
	}

	if len(cards) > 0 {
		elements = append(elements, objects.DetectedElement{
			Type:  "payment_card",
			Value: maskTail(cards[0], 4),
			Count: len(cards),
		})
	}

	return objects.DetectorResult{
		Detector: DetectorFinancial,
		Elements: elements,
		Categories: []objects.CategoryConfidence{
			{Category: objects.CategoryFinancial, Confidence: confidence(0.85, len(ibans)+len(cards))},
		},
		Severity: objects.SeverityWarning,
	}, true
}

func detectIdentity(text string) (objects.DetectorResult, bool) {
	ids := matchAll(nationalIDPattern, text)
	if len(ids) == 0 {
		return objects.DetectorResult{}, false
	}

	return objects.DetectorResult{
		Detector: DetectorIdentity,
		Elements: []objects.DetectedElement{
			{Type: "national_id", Value: maskTail(ids[0], 2), Count: len(ids)},
		},
		Categories: []objects.CategoryConfidence{
			{Category: objects.CategoryIdentity, Confidence: confidence(0.80, len(ids))},
		},
		Severity: objects.SeverityWarning,
	}, true
}

// detectLexicons scans for the fixed special-category lexicons. A single
// result covers all matched special categories.
func detectLexicons(text string) (objects.DetectorResult, bool) {
	lower := strings.ToLower(text)

	var (
		elements   []objects.DetectedElement
		categories []objects.CategoryConfidence
	)

	for _, lex := range specialLexicons {
		hits := 0

		for _, term := range lex.terms {
			hits += countTerm(lower, term)
		}

		if hits == 0 {
			continue
		}

		elements = append(elements, objects.DetectedElement{
			Type:  strings.ToLower(string(lex.category)),
			Value: fmt.Sprintf("%d lexicon hits", hits),
			Count: hits,
		})
		categories = append(categories, objects.CategoryConfidence{
			Category:   lex.category,
			Confidence: confidence(0.60, hits),
		})
	}

	if len(categories) == 0 {
		return objects.DetectorResult{}, false
	}

	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Type < elements[j].Type
	})

	return objects.DetectorResult{
		Detector:                 DetectorLexicon,
		Elements:                 elements,
		Categories:               categories,
		SpecialCategorySuspected: true,
		Severity:                 objects.SeverityCritical,
	}, true
}

// countTerm counts whole-word occurrences of term in lower-cased text.
func countTerm(lower, term string) int {
	count := 0
	offset := 0

	for {
		idx := strings.Index(lower[offset:], term)
		if idx < 0 {
			return count
		}

		start := offset + idx
		end := start + len(term)

		if isWordBoundary(lower, start-1) && isWordBoundary(lower, end) {
			count++
		}

		offset = end
	}
}

func isWordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}

	c := s[i]

	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return "***" + email[at+1:]
	}

	return email[:1] + "***@" + email[at+1:]
}

func maskTail(value string, keep int) string {
	if len(value) <= keep {
		return strings.Repeat("*", len(value))
	}

	return strings.Repeat("*", len(value)-keep) + value[len(value)-keep:]
}
