package detector

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/tidwall/gjson"

	"github.com/casewarden/discoveryhub/internal/log"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/pkg/xmap"
)

// ruleEnv is what a tenant rule expression sees for one evidence item.
type ruleEnv struct {
	Provider string         `expr:"provider"`
	Location string         `expr:"location"`
	Title    string         `expr:"title"`
	Content  string         `expr:"content"`
	Metadata map[string]any `expr:"metadata"`
}

// compiled programs are cached per expression; tenants reuse rules across
// many runs.
var programCache = xmap.New[string, *vm.Program]()

func compileRule(expression string) (*vm.Program, error) {
	if program, ok := programCache.Load(expression); ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(ruleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("detector: compile rule: %w", err)
	}

	programCache.Store(expression, program)

	return program, nil
}

// evalRules runs tenant-defined detector rules against the evidence item.
// A broken rule is logged and skipped; it never fails detection.
func evalRules(ctx context.Context, item objects.EvidenceItem, rules []objects.DetectorRule) []objects.DetectorResult {
	if len(rules) == 0 {
		return nil
	}

	env := ruleEnv{
		Provider: item.Provider,
		Location: item.Location,
		Title:    item.Title,
		Content:  item.Content,
		Metadata: metadataMap(item.Metadata),
	}

	var results []objects.DetectorResult

	for _, rule := range rules {
		program, err := compileRule(rule.Expression)
		if err != nil {
			log.Warn(ctx, "skipping broken detector rule",
				log.String("rule", rule.Name),
				log.Cause(err),
			)

			continue
		}

		out, err := expr.Run(program, env)
		if err != nil {
			log.Warn(ctx, "detector rule evaluation failed",
				log.String("rule", rule.Name),
				log.Cause(err),
			)

			continue
		}

		matched, _ := out.(bool)
		if !matched {
			continue
		}

		results = append(results, objects.DetectorResult{
			Detector:   DetectorRule,
			EvidenceID: item.ID,
			Elements: []objects.DetectedElement{
				{Type: "rule", Value: rule.Name, Count: 1},
			},
			Categories: []objects.CategoryConfidence{
				{Category: rule.Category, Confidence: 0.75},
			},
			SpecialCategorySuspected: rule.Special || rule.Category.IsSpecial(),
			Severity:                 rule.Severity,
		})
	}

	return results
}

// metadataMap decodes free-form metadata json into an expr-friendly map.
func metadataMap(raw []byte) map[string]any {
	m := make(map[string]any)

	if len(raw) == 0 {
		return m
	}

	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		m[key.String()] = value.Value()
		return true
	})

	return m
}
