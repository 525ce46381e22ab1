package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/repository"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	configFile string

	// Backend
	apiURL string

	// Selected user state
	stateFile string
	noPersist bool

	// Pipeline
	pipelineVersions []string
	extractorVersion string
	plannerVersion   string

	// Logging
	logLevel  string
	logFormat string

	file fileConfig
}

// fileConfig is the optional YAML config file. Flags and environment
// variables take precedence over it.
type fileConfig struct {
	APIURL           string   `yaml:"api_url"`
	StateFile        string   `yaml:"state_file"`
	PipelineVersions []string `yaml:"pipeline_versions"`
	ExtractorVersion string   `yaml:"extractor_version"`
	PlannerVersion   string   `yaml:"planner_version"`
	LogLevel         string   `yaml:"log_level"`
	LogFormat        string   `yaml:"log_format"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("LIFEBOOK_CONFIG"),
			Destination: &cfg.configFile,
		},
		&cli.StringFlag{
			Name:        "api-url",
			Usage:       "LifeBook backend base URL (default " + adapter.DefaultBackendURL + ")",
			Sources:     cli.EnvVars("LIFEBOOK_API_URL", "NEXT_PUBLIC_API_URL"),
			Destination: &cfg.apiURL,
		},
		&cli.StringFlag{
			Name:        "state-file",
			Usage:       "Path of the file keeping the selected user",
			Sources:     cli.EnvVars("LIFEBOOK_STATE_FILE"),
			Destination: &cfg.stateFile,
		},
		&cli.BoolFlag{
			Name:        "no-persist",
			Usage:       "Keep the selected user in memory only",
			Sources:     cli.EnvVars("LIFEBOOK_NO_PERSIST"),
			Destination: &cfg.noPersist,
		},
		&cli.StringSliceFlag{
			Name:        "pipeline-version",
			Usage:       "Pipeline versions compared side by side (repeatable)",
			Sources:     cli.EnvVars("LIFEBOOK_PIPELINE_VERSIONS"),
			Destination: &cfg.pipelineVersions,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Sources:     cli.EnvVars("LIFEBOOK_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Sources:     cli.EnvVars("LIFEBOOK_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// messageFlags returns flags selecting prompt versions for message submission
func messageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "extractor-version",
			Usage:       "Extractor prompt version (default " + model.LatestExtractorVersion + ")",
			Sources:     cli.EnvVars("LIFEBOOK_EXTRACTOR_VERSION"),
			Destination: &cfg.extractorVersion,
		},
		&cli.StringFlag{
			Name:        "planner-version",
			Usage:       "Planner prompt version (default " + model.LatestPlannerVersion + ")",
			Sources:     cli.EnvVars("LIFEBOOK_PLANNER_VERSION"),
			Destination: &cfg.plannerVersion,
		},
	}
}

// setup loads the config file and attaches the configured logger to ctx
func (cfg *config) setup(ctx context.Context) (context.Context, error) {
	if err := cfg.loadFile(); err != nil {
		return ctx, err
	}

	level := first(cfg.logLevel, cfg.file.LogLevel, "info")
	format := logging.Format(first(cfg.logFormat, cfg.file.LogFormat, string(logging.FormatConsole)))
	switch format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return ctx, goerr.New("unsupported log format", goerr.V("format", format))
	}

	logger := logging.NewWithFormat(level, format, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) loadFile() error {
	if cfg.configFile == "" {
		return nil
	}

	raw, err := os.ReadFile(cfg.configFile)
	if errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "config file not found", goerr.V("path", cfg.configFile))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configFile))
	}

	if err := yaml.Unmarshal(raw, &cfg.file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configFile))
	}
	return nil
}

// newBackend creates a new backend client
func (cfg *config) newBackend() (adapter.Backend, error) {
	backend, err := adapter.NewBackend(first(cfg.apiURL, cfg.file.APIURL, adapter.DefaultBackendURL))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create backend client")
	}
	return backend, nil
}

// newSelectionRepository creates the persistence of the selected user
func (cfg *config) newSelectionRepository() (repository.SelectionRepository, error) {
	if cfg.noPersist {
		return repository.NewMemory(), nil
	}

	path := first(cfg.stateFile, cfg.file.StateFile)
	if path == "" {
		var err error
		if path, err = repository.DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	repo, err := repository.NewFile(path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// newStore creates the selected-user store
func (cfg *config) newStore(ctx context.Context) (*selection.Store, error) {
	repo, err := cfg.newSelectionRepository()
	if err != nil {
		return nil, err
	}

	store, err := selection.New(ctx, repo)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create selection store")
	}
	return store, nil
}

// newStorage creates the archive destination of exports
func (cfg *config) newStorage(ctx context.Context, bucket, prefix, dir string) (adapter.Storage, error) {
	if bucket != "" {
		storage, err := adapter.NewCloudStorage(ctx, bucket, prefix)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		return storage, nil
	}
	return adapter.NewLocalStorage(first(dir, "."))
}

func (cfg *config) versions() []model.PipelineVersion {
	if len(cfg.pipelineVersions) > 0 {
		return model.ParsePipelineVersions(cfg.pipelineVersions)
	}
	return model.ParsePipelineVersions(cfg.file.PipelineVersions)
}

func (cfg *config) messageOptions() adapter.MessageOptions {
	return adapter.MessageOptions{
		ExtractorVersion: first(cfg.extractorVersion, cfg.file.ExtractorVersion),
		PlannerVersion:   first(cfg.plannerVersion, cfg.file.PlannerVersion),
	}
}

// first returns the first non-empty value
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
