package repository

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/model"
)

// SelectionKey is the key the selected user id is stored under
const SelectionKey = "selectedUserId"

// SelectionRepository persists the id of the user currently being inspected
type SelectionRepository interface {
	// LoadSelection returns the stored user id. ok is false when nothing is stored.
	LoadSelection(ctx context.Context) (id model.UserID, ok bool, err error)

	// SaveSelection stores id, replacing any previous value
	SaveSelection(ctx context.Context, id model.UserID) error

	// ClearSelection removes the stored value
	ClearSelection(ctx context.Context) error
}
