package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/lifebook/pkg/model"
)

// Memory keeps the selection in process memory only
type Memory struct {
	mu    sync.Mutex
	id    model.UserID
	set   bool
	saves int
}

var _ SelectionRepository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (x *Memory) LoadSelection(ctx context.Context) (model.UserID, bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.id, x.set, nil
}

func (x *Memory) SaveSelection(ctx context.Context, id model.UserID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.id, x.set = id, true
	x.saves++
	return nil
}

func (x *Memory) ClearSelection(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.id, x.set = 0, false
	return nil
}

// Saves returns how many times SaveSelection was called
func (x *Memory) Saves() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.saves
}
