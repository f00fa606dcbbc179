package detector

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/casewarden/discoveryhub/internal/objects"
)

// Engine runs the full pipeline over evidence items: built-in detectors
// on content, metadata scanning, and tenant rules.
type Engine struct{}

// NewEngine builds the detector engine.
func NewEngine() *Engine {
	return &Engine{}
}

// DetectEvidence classifies one evidence item. Content detectors only run
// for full-content evidence; metadata and rules always run.
func (e *Engine) DetectEvidence(ctx context.Context, item objects.EvidenceItem, rules []objects.DetectorRule) []objects.DetectorResult {
	var results []objects.DetectorResult

	if item.ContentMode == objects.ContentModeFullContent {
		for _, r := range Detect(item.Content) {
			r.EvidenceID = item.ID
			results = append(results, r)
		}
	}

	for _, r := range DetectMetadata(item.Metadata) {
		r.EvidenceID = item.ID
		results = append(results, r)
	}

	results = append(results, evalRules(ctx, item, rules)...)

	return results
}

// DetectMetadata scans the string values of free-form metadata json with
// the same detectors used for content. It reports at most one result per
// detector type across all values.
func DetectMetadata(raw []byte) []objects.DetectorResult {
	if len(raw) == 0 {
		return nil
	}

	var values []string

	collectStrings(gjson.ParseBytes(raw), &values)

	if len(values) == 0 {
		return nil
	}

	return Detect(strings.Join(values, "\n"))
}

func collectStrings(result gjson.Result, out *[]string) {
	switch {
	case result.IsObject() || result.IsArray():
		result.ForEach(func(_, value gjson.Result) bool {
			collectStrings(value, out)
			return true
		})
	case result.Type == gjson.String:
		*out = append(*out, result.String())
	}
}
