package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casewarden/discoveryhub/internal/objects"
)

func TestEvalRules(t *testing.T) {
	item := objects.EvidenceItem{
		ID:       "ev-1",
		Provider: "hris",
		Location: "hris://records/7",
		Title:    "absence record",
		Content:  "extended sick leave approved",
		Metadata: []byte(`{"owner":"jane@corp.test","department":"people"}`),
	}

	t.Run("matching rule emits a result", func(t *testing.T) {
		rules := []objects.DetectorRule{{
			Name:       "hris-absence",
			Category:   objects.CategoryHealth,
			Severity:   objects.SeverityCritical,
			Expression: `provider == "hris" && content contains "leave"`,
		}}

		results := evalRules(t.Context(), item, rules)
		require.Len(t, results, 1)

		r := results[0]
		require.Equal(t, DetectorRule, r.Detector)
		require.Equal(t, "ev-1", r.EvidenceID)
		require.Equal(t, "hris-absence", r.Elements[0].Value)
		require.Equal(t, objects.CategoryHealth, r.Categories[0].Category)
		require.InDelta(t, 0.75, r.Categories[0].Confidence, 1e-9)
		require.True(t, r.SpecialCategorySuspected)
		require.Equal(t, objects.SeverityCritical, r.Severity)
	})

	t.Run("rules see decoded metadata", func(t *testing.T) {
		rules := []objects.DetectorRule{{
			Name:       "owner-match",
			Category:   objects.CategoryContact,
			Severity:   objects.SeverityInfo,
			Expression: `metadata.owner == "jane@corp.test"`,
		}}

		results := evalRules(t.Context(), item, rules)
		require.Len(t, results, 1)
		require.False(t, results[0].SpecialCategorySuspected)
	})

	t.Run("special flag can be forced for non special categories", func(t *testing.T) {
		rules := []objects.DetectorRule{{
			Name:       "forced",
			Category:   objects.CategoryContact,
			Severity:   objects.SeverityWarning,
			Expression: `true`,
			Special:    true,
		}}

		results := evalRules(t.Context(), item, rules)
		require.Len(t, results, 1)
		require.True(t, results[0].SpecialCategorySuspected)
	})

	t.Run("broken rule is skipped without failing the rest", func(t *testing.T) {
		rules := []objects.DetectorRule{
			{
				Name:       "broken",
				Category:   objects.CategoryContact,
				Severity:   objects.SeverityInfo,
				Expression: `provider ==`,
			},
			{
				Name:       "valid",
				Category:   objects.CategoryContact,
				Severity:   objects.SeverityInfo,
				Expression: `title == "absence record"`,
			},
		}

		results := evalRules(t.Context(), item, rules)
		require.Len(t, results, 1)
		require.Equal(t, "valid", results[0].Elements[0].Value)
	})

	t.Run("non matching rule emits nothing", func(t *testing.T) {
		rules := []objects.DetectorRule{{
			Name:       "other-provider",
			Category:   objects.CategoryContact,
			Severity:   objects.SeverityInfo,
			Expression: `provider == "mailbox"`,
		}}

		require.Empty(t, evalRules(t.Context(), item, rules))
	})

	t.Run("no rules is a no-op", func(t *testing.T) {
		require.Nil(t, evalRules(t.Context(), item, nil))
	})
}

func TestEngineDetectEvidence(t *testing.T) {
	engine := NewEngine()

	t.Run("content detectors are limited to full content evidence", func(t *testing.T) {
		item := objects.EvidenceItem{
			ID:          "ev-meta",
			Provider:    "fileshare",
			ContentMode: objects.ContentModeMetadataOnly,
			Content:     "union dues deducted for jane@corp.test",
		}

		require.Empty(t, engine.DetectEvidence(t.Context(), item, nil))
	})

	t.Run("full content evidence runs all detectors", func(t *testing.T) {
		item := objects.EvidenceItem{
			ID:          "ev-full",
			Provider:    "fileshare",
			ContentMode: objects.ContentModeFullContent,
			Content:     "union dues deducted",
		}

		results := engine.DetectEvidence(t.Context(), item, nil)
		require.Len(t, results, 1)
		require.Equal(t, DetectorLexicon, results[0].Detector)
		require.Equal(t, "ev-full", results[0].EvidenceID)
	})

	t.Run("metadata strings are scanned regardless of content mode", func(t *testing.T) {
		item := objects.EvidenceItem{
			ID:          "ev-meta-hit",
			Provider:    "fileshare",
			ContentMode: objects.ContentModeMetadataOnly,
			Metadata:    []byte(`{"owner":"jane@corp.test","tags":["shared","bob@corp.test"]}`),
		}

		results := engine.DetectEvidence(t.Context(), item, nil)
		require.Len(t, results, 1)

		r := results[0]
		require.Equal(t, DetectorContact, r.Detector)
		require.True(t, r.ThirdPartySuspected)
	})
}

func TestDetectMetadata(t *testing.T) {
	require.Nil(t, DetectMetadata(nil))
	require.Nil(t, DetectMetadata([]byte(`{"count":3,"ok":true}`)))

	results := DetectMetadata([]byte(`{"nested":{"contact":"jane@corp.test"}}`))
	require.Len(t, results, 1)
	require.Equal(t, DetectorContact, results[0].Detector)
}
