// Package simulator provides deterministic in-process connectors. They
// stand in for real data sources in local runs and tests: given the same
// query subject they always return the same evidence.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/spf13/cast"

	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/objects"
)

// Provider names served by the simulator.
const (
	ProviderMailbox   = "mailbox"
	ProviderCRM       = "crm"
	ProviderHRIS      = "hris"
	ProviderFileshare = "fileshare"
)

// Config keys understood by the simulator, used by tests to exercise the
// failure paths of the dispatch layer.
const (
	// KeySimulateFailure set to "collect" fails CollectData, "health"
	// reports an unhealthy source.
	KeySimulateFailure = "simulate_failure"
)

// location and content are format strings taking the query subject as
// their single argument.
type template struct {
	title    string
	location string
	content  string
}

// Templates are keyed by provider. Content deliberately trips specific
// detectors so end-to-end classification is exercised.
var templates = map[string][]template{
	ProviderMailbox: {
		{
			title:    "Re: contract renewal",
			location: "inbox/%[1]s/2024/03",
			content:  "Hi %[1]s, please reach me at %[1]s@example.com or +49 30 901820. Regards, sales.",
		},
		{
			title:    "Fwd: invoice copy",
			location: "inbox/%[1]s/2024/04",
			content:  "Dear %[1]s, your colleague petra.vogel@example.com asked about invoice. Card used: 4111 1111 1111 1111.",
		},
		{
			title:    "Lunch on Friday?",
			location: "inbox/%[1]s/2024/05",
			content:  "Hey %[1]s, shall we grab lunch after the works council meeting on Friday?",
		},
	},
	ProviderCRM: {
		{
			title:    "Account record",
			location: "accounts/%[1]s",
			content:  "Customer %[1]s. IBAN DE89 3704 0044 0532 0130 00 on file. Contact: %[1]s@customer.test.",
		},
		{
			title:    "Support ticket 4521",
			location: "tickets/%[1]s/4521",
			content:  "%[1]s requested a refund to card 5500 0000 0000 0004 after a billing error.",
		},
	},
	ProviderHRIS: {
		{
			title:    "Absence record",
			location: "hr/absences/%[1]s",
			content:  "%[1]s was on sick leave following surgery; medication plan attached per prescription.",
		},
		{
			title:    "Payroll deduction note",
			location: "hr/payroll/%[1]s",
			content:  "Monthly union dues deduction authorised by %[1]s (trade union membership since 2019).",
		},
		{
			title:    "Emergency contact sheet",
			location: "hr/contacts/%[1]s",
			content:  "Emergency contact for %[1]s: m.bauer@family.test, phone +49 170 5550123.",
		},
	},
	ProviderFileshare: {
		{
			title:    "meeting-notes.docx",
			location: "shares/team/%[1]s/meeting-notes.docx",
			content:  "Notes by %[1]s. Follow-up on the party membership drive and the campaign donation list.",
		},
		{
			title:    "id-scan.pdf",
			location: "shares/hr/%[1]s/id-scan.pdf",
			content:  "Identity document of %[1]s, national register number 85.07.30-033.61.",
		},
	},
}

// Simulator implements the Connector contract for one simulated provider.
type Simulator struct {
	provider string
}

// New builds a simulator for the given provider. Unknown providers yield a
// connector that returns empty result sets.
func New(provider string) *Simulator {
	return &Simulator{provider: provider}
}

// All returns one simulator per known provider.
func All() []*Simulator {
	return []*Simulator{
		New(ProviderMailbox),
		New(ProviderCRM),
		New(ProviderHRIS),
		New(ProviderFileshare),
	}
}

func (s *Simulator) Name() string {
	return s.provider
}

func (s *Simulator) HealthCheck(ctx context.Context, cfg connector.Config, secretRef string) (connector.HealthResult, error) {
	if cfg[KeySimulateFailure] == "health" {
		return connector.HealthResult{
			Healthy:   false,
			Message:   "simulated outage",
			CheckedAt: time.Now().UTC(),
		}, nil
	}

	return connector.HealthResult{
		Healthy:   true,
		Message:   "ok",
		Details:   map[string]string{"mode": "simulated"},
		CheckedAt: time.Now().UTC(),
	}, nil
}

// CollectData returns evidence derived deterministically from the subject,
// so repeated runs over the same subject are reproducible.
func (s *Simulator) CollectData(ctx context.Context, cfg connector.Config, secretRef string, spec objects.QuerySpec) (connector.CollectResult, error) {
	if cfg[KeySimulateFailure] == "collect" {
		return connector.CollectResult{}, fmt.Errorf("simulated collect failure for %s", s.provider)
	}

	provTemplates := templates[s.provider]
	if len(provTemplates) == 0 {
		return connector.CollectResult{Success: true}, nil
	}

	seed := subjectSeed(s.provider, spec.Subject)
	start := int(seed % uint64(len(provTemplates)))
	count := 1 + start

	if limit := cast.ToInt(spec.Constraints["limit"]); limit > 0 && limit < count {
		count = limit
	}

	items := make([]objects.EvidenceItem, 0, count)

	for i := 0; i < count; i++ {
		tpl := provTemplates[(start+i)%len(provTemplates)]

		contentMode := objects.ContentModeFullContent
		content := fmt.Sprintf(tpl.content, spec.Subject)

		if spec.Mode == objects.ExecutionModeMetadataOnly {
			contentMode = objects.ContentModeMetadataOnly
			content = ""
		}

		metadata, _ := json.Marshal(map[string]any{
			"owner":    fmt.Sprintf("%s@corp.test", spec.Subject),
			"provider": s.provider,
			"record":   i,
		})

		items = append(items, objects.EvidenceItem{
			Provider:    s.provider,
			Location:    fmt.Sprintf(tpl.location, spec.Subject),
			Title:       tpl.title,
			Content:     content,
			ContentMode: contentMode,
			Metadata:    metadata,
			CollectedAt: time.Now().UTC(),
		})
	}

	resultMetadata, _ := json.Marshal(map[string]any{"simulated": true, "templates": count})

	return connector.CollectResult{
		Success:         true,
		RecordsFound:    len(items),
		FindingsSummary: fmt.Sprintf("%d record(s) matched in %s", len(items), s.provider),
		ResultMetadata:  resultMetadata,
		EvidenceItems:   items,
	}, nil
}

func subjectSeed(provider, subject string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(provider))
	_, _ = h.Write([]byte("/"))
	_, _ = h.Write([]byte(subject))

	return h.Sum64()
}
