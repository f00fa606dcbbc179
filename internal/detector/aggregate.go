package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// Aggregate folds all detector results of a run into findings: one finding
// per data category, evidence ids deduplicated, maximum severity, mean
// confidence. It is a pure function of its input; aggregating the same
// result set twice yields byte-identical findings.
func Aggregate(runID string, results []objects.DetectorResult) []objects.Finding {
	type group struct {
		severity    objects.Severity
		confidences []decimal.Decimal
		evidenceIDs map[string]bool
		special     bool
		thirdParty  bool
		detections  int
	}

	groups := make(map[objects.DataCategory]*group)

	for _, result := range results {
		for _, cc := range result.Categories {
			g := groups[cc.Category]
			if g == nil {
				g = &group{severity: objects.SeverityInfo, evidenceIDs: make(map[string]bool)}
				groups[cc.Category] = g
			}

			g.severity = objects.MaxSeverity(g.severity, result.Severity)
			g.confidences = append(g.confidences, decimal.NewFromFloat(cc.Confidence))

			if result.EvidenceID != "" {
				g.evidenceIDs[result.EvidenceID] = true
			}

			g.special = g.special || result.SpecialCategorySuspected || cc.Category.IsSpecial()
			g.thirdParty = g.thirdParty || result.ThirdPartySuspected
			g.detections++
		}
	}

	categories := make([]objects.DataCategory, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}

	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	findings := make([]objects.Finding, 0, len(categories))

	for _, category := range categories {
		g := groups[category]

		evidenceIDs := make([]string, 0, len(g.evidenceIDs))
		for id := range g.evidenceIDs {
			evidenceIDs = append(evidenceIDs, id)
		}

		sort.Strings(evidenceIDs)

		findings = append(findings, objects.Finding{
			// Deterministic id so re-aggregation never duplicates findings.
			ID:       fmt.Sprintf("fnd-%s-%s", runID, strings.ToLower(string(category))),
			RunID:    runID,
			Category: category,

			Severity:   g.severity,
			Confidence: meanConfidence(g.confidences),
			Summary: fmt.Sprintf("%s data detected in %d evidence item(s) across %d detection(s)",
				category, len(evidenceIDs), g.detections),

			EvidenceIDs: evidenceIDs,

			ContainsSpecialCategory:         g.special,
			ContainsThirdPartyDataSuspected: g.thirdParty,
			RequiresLegalReview:             g.special || g.thirdParty,
		})
	}

	return findings
}

// meanConfidence averages (not maximises) confidence, so one noisy
// high-confidence hit cannot dominate a category.
func meanConfidence(confidences []decimal.Decimal) float64 {
	if len(confidences) == 0 {
		return 0
	}

	sum := decimal.Zero
	for _, c := range confidences {
		sum = sum.Add(c)
	}

	mean, _ := sum.Div(decimal.NewFromInt(int64(len(confidences)))).Round(4).Float64()

	return mean
}

// ContainsSpecialCategory reports whether any finding carries the special
// category flag; the run-level flag is derived from it.
func ContainsSpecialCategory(findings []objects.Finding) bool {
	for _, f := range findings {
		if f.ContainsSpecialCategory {
			return true
		}
	}

	return false
}
