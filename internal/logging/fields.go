package logging

// Canonical log field names shared by every package.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyModule     = "module"
	KeyModules    = "modules"
	KeyEngine     = "engine"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyEntries    = "entries"
	KeyRevision   = "revision"
)
