package dependencies

import (
	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/store"
)

func NewRunStore() store.RunStore {
	return store.NewMemoryRunStore()
}

func NewEvidenceStore() store.EvidenceStore {
	return store.NewMemoryEvidenceStore()
}

func NewDetectorResultStore() store.DetectorResultStore {
	return store.NewMemoryDetectorResultStore()
}

func NewFindingStore() store.FindingStore {
	return store.NewMemoryFindingStore()
}

func NewArtifactStore() store.ArtifactStore {
	return store.NewMemoryArtifactStore()
}

func NewSettingsStore() store.SettingsStore {
	return store.NewMemorySettingsStore()
}

func NewTeamStore() authz.TeamStore {
	return authz.NewMemoryTeamStore()
}
