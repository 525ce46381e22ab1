package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	"gopkg.in/yaml.v3"
)

// File stores the selection in a YAML state file. Unknown keys in the file
// are preserved on write.
type File struct {
	path string
	mu   sync.Mutex
}

var _ SelectionRepository = (*File)(nil)

// NewFile creates a file backed repository. The file and its directory are
// created on the first write.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, goerr.New("state file path is required")
	}
	return &File{path: path}, nil
}

// DefaultStatePath returns $XDG_CONFIG_HOME/lifebook/state.yaml, falling back
// to the OS user config directory.
func DefaultStatePath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", goerr.Wrap(err, "failed to resolve user config directory")
		}
	}
	return filepath.Join(dir, "lifebook", "state.yaml"), nil
}

// Path returns the state file path
func (x *File) Path() string {
	return x.path
}

func (x *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(x.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read state file", goerr.V("path", x.path))
	}

	state := map[string]string{}
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return nil, goerr.Wrap(err, "failed to parse state file", goerr.V("path", x.path))
	}
	if state == nil {
		state = map[string]string{}
	}
	return state, nil
}

func (x *File) write(state map[string]string) error {
	raw, err := yaml.Marshal(state)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal state")
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0o700); err != nil {
		return goerr.Wrap(err, "failed to create state directory", goerr.V("path", x.path))
	}

	// rename keeps readers from seeing a half written file
	tmp := x.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return goerr.Wrap(err, "failed to write state file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, x.path); err != nil {
		return goerr.Wrap(err, "failed to replace state file", goerr.V("path", x.path))
	}
	return nil
}

func (x *File) LoadSelection(ctx context.Context) (model.UserID, bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	state, err := x.read()
	if err != nil {
		return 0, false, err
	}

	value, ok := state[SelectionKey]
	if !ok || value == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		// a corrupted value is treated as no selection, the store will auto select
		logging.From(ctx).Warn("ignoring invalid stored user id", "path", x.path, "value", value)
		return 0, false, nil
	}
	return model.UserID(id), true, nil
}

func (x *File) SaveSelection(ctx context.Context, id model.UserID) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	state, err := x.read()
	if err != nil {
		return err
	}
	state[SelectionKey] = id.String()
	return x.write(state)
}

func (x *File) ClearSelection(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	state, err := x.read()
	if err != nil {
		return err
	}
	if _, ok := state[SelectionKey]; !ok {
		return nil
	}
	delete(state, SelectionKey)
	return x.write(state)
}
