package page

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// PersonDetail is a selected person and the memories mentioning them
type PersonDetail struct {
	Person   *model.Person
	Memories []*model.Memory
}

// Persons compares the persons of the selected user per pipeline version
type Persons struct {
	scope
	backend  adapter.Backend
	versions []model.PipelineVersion

	list   *view.View[*view.Versioned[*model.Person]]
	detail *view.View[*PersonDetail]
}

var _ Page = (*Persons)(nil)

func NewPersons(store *selection.Store, backend adapter.Backend, opts ...Option) *Persons {
	o := newOptions(opts)
	return &Persons{
		scope:    scope{store: store},
		backend:  backend,
		versions: o.versions,
		list:     view.New[*view.Versioned[*model.Person]]("persons"),
		detail:   view.New[*PersonDetail]("person"),
	}
}

func (x *Persons) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) {
		x.ClearSelection()
		_ = x.Reload(ctx)
	})
	return x.Reload(ctx)
}

func (x *Persons) Reload(ctx context.Context) error {
	return loadVersionedForUser(ctx, x.store, x.list, x.versions, func(ctx context.Context, userID model.UserID, version model.PipelineVersion) ([]*model.Person, error) {
		return x.backend.ListPersons(ctx, adapter.PersonFilter{UserID: userID, PipelineVersion: version})
	})
}

func (x *Persons) Versions() []model.PipelineVersion {
	return x.versions
}

func (x *Persons) Snapshot() view.Snapshot[*view.Versioned[*model.Person]] {
	return x.list.Snapshot()
}

func (x *Persons) Detail() view.Snapshot[*PersonDetail] {
	return x.detail.Snapshot()
}

// Select loads the memories of a person. The person record comes from the
// loaded list when present.
func (x *Persons) Select(ctx context.Context, id model.PersonID) error {
	person, _, found := x.list.Snapshot().Data.Find(func(p *model.Person) bool { return p.ID == id })

	return x.detail.Load(ctx, func(ctx context.Context) (*PersonDetail, error) {
		if !found {
			var err error
			if person, err = x.backend.GetPerson(ctx, id); err != nil {
				return nil, err
			}
		}

		memories, err := x.backend.ListPersonMemories(ctx, id)
		if err != nil {
			return nil, err
		}
		return &PersonDetail{Person: person, Memories: memories}, nil
	})
}

func (x *Persons) ClearSelection() {
	x.detail.Reset()
}

// Merge folds source into target and reloads the list
func (x *Persons) Merge(ctx context.Context, source, target model.PersonID) (*model.MergeResult, error) {
	if source == target {
		return nil, goerr.New("cannot merge a person into itself", goerr.V("person_id", source))
	}

	result, err := x.backend.MergePersons(ctx, source, target)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to merge persons",
			goerr.V("source", source),
			goerr.V("target", target))
	}

	if d := x.detail.Snapshot(); d.HasData && d.Data.Person != nil && d.Data.Person.ID == source {
		x.ClearSelection()
	}
	_ = x.Reload(ctx)
	return result, nil
}
