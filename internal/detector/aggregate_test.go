package detector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/casewarden/discoveryhub/internal/objects"
)

func TestAggregate(t *testing.T) {
	results := []objects.DetectorResult{
		{
			Detector:   DetectorContact,
			EvidenceID: "ev-2",
			Categories: []objects.CategoryConfidence{
				{Category: objects.CategoryContact, Confidence: 0.90},
			},
			ThirdPartySuspected: true,
			Severity:            objects.SeverityInfo,
		},
		{
			Detector:   DetectorContact,
			EvidenceID: "ev-1",
			Categories: []objects.CategoryConfidence{
				{Category: objects.CategoryContact, Confidence: 0.92},
			},
			Severity: objects.SeverityInfo,
		},
		{
			Detector:   DetectorLexicon,
			EvidenceID: "ev-1",
			Categories: []objects.CategoryConfidence{
				{Category: objects.CategoryHealth, Confidence: 0.62},
			},
			SpecialCategorySuspected: true,
			Severity:                 objects.SeverityCritical,
		},
		{
			Detector:   DetectorRule,
			EvidenceID: "ev-1",
			Categories: []objects.CategoryConfidence{
				{Category: objects.CategoryHealth, Confidence: 0.75},
			},
			SpecialCategorySuspected: true,
			Severity:                 objects.SeverityWarning,
		},
	}

	findings := Aggregate("run-1", results)
	require.Len(t, findings, 2)

	t.Run("findings are sorted by category", func(t *testing.T) {
		require.Equal(t, objects.CategoryContact, findings[0].Category)
		require.Equal(t, objects.CategoryHealth, findings[1].Category)
	})

	t.Run("ids are deterministic", func(t *testing.T) {
		require.Equal(t, "fnd-run-1-contact", findings[0].ID)
		require.Equal(t, "fnd-run-1-health", findings[1].ID)
	})

	t.Run("evidence ids are deduplicated and sorted", func(t *testing.T) {
		require.Equal(t, []string{"ev-1", "ev-2"}, findings[0].EvidenceIDs)
		require.Equal(t, []string{"ev-1"}, findings[1].EvidenceIDs)
	})

	t.Run("severity is the maximum across detections", func(t *testing.T) {
		require.Equal(t, objects.SeverityInfo, findings[0].Severity)
		require.Equal(t, objects.SeverityCritical, findings[1].Severity)
	})

	t.Run("confidence is the mean across detections", func(t *testing.T) {
		require.InDelta(t, 0.91, findings[0].Confidence, 1e-9)
		require.InDelta(t, 0.685, findings[1].Confidence, 1e-9)
	})

	t.Run("flags fold across detections", func(t *testing.T) {
		require.True(t, findings[0].ContainsThirdPartyDataSuspected)
		require.False(t, findings[0].ContainsSpecialCategory)
		require.True(t, findings[0].RequiresLegalReview)

		require.True(t, findings[1].ContainsSpecialCategory)
		require.True(t, findings[1].RequiresLegalReview)
	})

	t.Run("summary counts evidence and detections", func(t *testing.T) {
		require.Equal(t, "HEALTH data detected in 1 evidence item(s) across 2 detection(s)", findings[1].Summary)
	})

	t.Run("aggregation is idempotent", func(t *testing.T) {
		again := Aggregate("run-1", results)
		require.Empty(t, cmp.Diff(findings, again))
	})
}

func TestAggregateEmpty(t *testing.T) {
	require.Empty(t, Aggregate("run-1", nil))
}

func TestContainsSpecialCategory(t *testing.T) {
	require.False(t, ContainsSpecialCategory(nil))
	require.False(t, ContainsSpecialCategory([]objects.Finding{{Category: objects.CategoryContact}}))
	require.True(t, ContainsSpecialCategory([]objects.Finding{
		{Category: objects.CategoryContact},
		{Category: objects.CategoryHealth, ContainsSpecialCategory: true},
	}))
}
