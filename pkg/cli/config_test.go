package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/repository"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifebook.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o600)).Required()
	return path
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
api_url: http://backend.example:9000
state_file: /tmp/lifebook-state.yaml
pipeline_versions: [v2]
extractor_version: v2
planner_version: v2
log_format: json
`)

	cfg := config{configFile: path}
	_, err := cfg.setup(context.Background())
	gt.NoError(t, err).Required()

	backend, err := cfg.newBackend()
	gt.NoError(t, err)
	gt.Equal(t, backend.(*adapter.BackendClient).BaseURL(), "http://backend.example:9000")
	gt.Equal(t, cfg.versions(), []model.PipelineVersion{model.PipelineV2})
	gt.Equal(t, cfg.messageOptions(), adapter.MessageOptions{ExtractorVersion: "v2", PlannerVersion: "v2"})

	repo, err := cfg.newSelectionRepository()
	gt.NoError(t, err)
	gt.Equal(t, repo.(*repository.File).Path(), "/tmp/lifebook-state.yaml")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, `
api_url: http://backend.example:9000
extractor_version: v2
`)

	cfg := config{
		configFile:       path,
		apiURL:           "http://flag.example:8000",
		extractorVersion: "v1",
		pipelineVersions: []string{"v1"},
	}
	_, err := cfg.setup(context.Background())
	gt.NoError(t, err).Required()

	backend, err := cfg.newBackend()
	gt.NoError(t, err)
	gt.Equal(t, backend.(*adapter.BackendClient).BaseURL(), "http://flag.example:8000")
	gt.Equal(t, cfg.messageOptions().ExtractorVersion, "v1")
	gt.Equal(t, cfg.messageOptions().PlannerVersion, "")
	gt.Equal(t, cfg.versions(), []model.PipelineVersion{model.PipelineV1})
}

func TestConfigDefaults(t *testing.T) {
	cfg := config{noPersist: true}
	_, err := cfg.setup(context.Background())
	gt.NoError(t, err).Required()

	backend, err := cfg.newBackend()
	gt.NoError(t, err)
	gt.Equal(t, backend.(*adapter.BackendClient).BaseURL(), adapter.DefaultBackendURL)
	gt.Equal(t, cfg.versions(), model.PipelineVersions)

	repo, err := cfg.newSelectionRepository()
	gt.NoError(t, err)
	_, ok := repo.(*repository.Memory)
	gt.True(t, ok)
}

func TestConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := config{configFile: filepath.Join(t.TempDir(), "missing.yaml")}
		_, err := cfg.setup(context.Background())
		gt.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		cfg := config{configFile: writeConfig(t, "api_url: [")}
		_, err := cfg.setup(context.Background())
		gt.Error(t, err)
	})

	t.Run("unknown log format", func(t *testing.T) {
		cfg := config{logFormat: "xml"}
		_, err := cfg.setup(context.Background())
		gt.Error(t, err)
	})
}

func TestRunReportsFailure(t *testing.T) {
	err := Run(context.Background(), []string{"lifebook", "sessions", "show", "not-a-number"})
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, 1)
}
