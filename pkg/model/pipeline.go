package model

// PipelineVersion labels which backend algorithm produced a record.
type PipelineVersion string

const (
	PipelineV1 PipelineVersion = "v1"
	PipelineV2 PipelineVersion = "v2"
)

// PipelineVersions are compared side by side in versioned views.
var PipelineVersions = []PipelineVersion{PipelineV1, PipelineV2}

const (
	LatestExtractorVersion = "v3"
	LatestPlannerVersion   = "v1"
)

// ExtractorVersions and PlannerVersions are the selectable prompt versions
// when submitting a message.
var (
	ExtractorVersions = []string{"v1", "v2", "v3"}
	PlannerVersions   = []string{"v1", "v2"}
)

// ParsePipelineVersions converts labels given on the command line or in the
// config file. An empty input yields the default pair.
func ParsePipelineVersions(labels []string) []PipelineVersion {
	if len(labels) == 0 {
		return PipelineVersions
	}
	versions := make([]PipelineVersion, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		versions = append(versions, PipelineVersion(l))
	}
	if len(versions) == 0 {
		return PipelineVersions
	}
	return versions
}
