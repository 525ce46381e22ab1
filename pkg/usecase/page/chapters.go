package page

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// ChapterDetail is a selected chapter with its linked memories and coverage
type ChapterDetail struct {
	Chapter  *model.Chapter
	Memories []*model.Memory
	Coverage *model.Coverage
}

// Chapters compares the biography outline of the selected user per pipeline version
type Chapters struct {
	scope
	backend  adapter.Backend
	versions []model.PipelineVersion

	list   *view.View[*view.Versioned[*model.Chapter]]
	detail *view.View[*ChapterDetail]
}

var _ Page = (*Chapters)(nil)

func NewChapters(store *selection.Store, backend adapter.Backend, opts ...Option) *Chapters {
	o := newOptions(opts)
	return &Chapters{
		scope:    scope{store: store},
		backend:  backend,
		versions: o.versions,
		list:     view.New[*view.Versioned[*model.Chapter]]("chapters"),
		detail:   view.New[*ChapterDetail]("chapter"),
	}
}

func (x *Chapters) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) {
		x.ClearSelection()
		_ = x.Reload(ctx)
	})
	return x.Reload(ctx)
}

func (x *Chapters) Reload(ctx context.Context) error {
	return loadVersionedForUser(ctx, x.store, x.list, x.versions, func(ctx context.Context, userID model.UserID, version model.PipelineVersion) ([]*model.Chapter, error) {
		return x.backend.ListChapters(ctx, adapter.ChapterFilter{UserID: userID, PipelineVersion: version})
	})
}

func (x *Chapters) Versions() []model.PipelineVersion {
	return x.versions
}

func (x *Chapters) Snapshot() view.Snapshot[*view.Versioned[*model.Chapter]] {
	return x.list.Snapshot()
}

func (x *Chapters) Detail() view.Snapshot[*ChapterDetail] {
	return x.detail.Snapshot()
}

// Select loads the linked memories and the coverage of a chapter together
func (x *Chapters) Select(ctx context.Context, id model.ChapterID) error {
	chapter, _, found := x.list.Snapshot().Data.Find(func(c *model.Chapter) bool { return c.ID == id })

	return x.detail.Load(ctx, func(ctx context.Context) (*ChapterDetail, error) {
		detail := &ChapterDetail{Chapter: chapter}

		fetches := []func(ctx context.Context) error{
			func(ctx context.Context) error {
				var err error
				detail.Memories, err = x.backend.ListChapterMemories(ctx, id)
				return err
			},
			func(ctx context.Context) error {
				var err error
				detail.Coverage, err = x.backend.GetChapterCoverage(ctx, id)
				return err
			},
		}
		if !found {
			fetches = append(fetches, func(ctx context.Context) error {
				var err error
				detail.Chapter, err = x.backend.GetChapter(ctx, id)
				return err
			})
		}

		if err := view.All(ctx, fetches...); err != nil {
			return nil, err
		}
		return detail, nil
	})
}

func (x *Chapters) ClearSelection() {
	x.detail.Reset()
}
