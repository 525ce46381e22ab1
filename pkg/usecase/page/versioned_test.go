package page_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter/backendtest"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

func seedMemories(srv *backendtest.Server) {
	srv.Memories = []*model.Memory{
		{ID: 1, UserID: 1, SessionID: 10, Summary: "born in Lyon", PipelineVersion: model.PipelineV1},
		{ID: 2, UserID: 1, SessionID: 10, Summary: "moved to Paris", PipelineVersion: model.PipelineV1},
		{ID: 3, UserID: 1, SessionID: 11, Summary: "first job", PipelineVersion: model.PipelineV1},
		{ID: 4, UserID: 2, SessionID: 20, Summary: "other user", PipelineVersion: model.PipelineV2},
	}
}

func TestMemoriesKeepVersionsSeparate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	gt.NoError(t, f.store.Set(ctx, 1))

	memories := page.NewMemories(f.store, f.client)
	gt.NoError(t, memories.Mount(ctx))
	defer memories.Unmount()

	snap := memories.Snapshot()
	gt.Equal(t, snap.State, view.Ready)
	gt.A(t, snap.Data.Get(model.PipelineV1)).Length(3)
	gt.V(t, snap.Data.Get(model.PipelineV2)).NotNil()
	gt.A(t, snap.Data.Get(model.PipelineV2)).Length(0)

	versions := map[string]bool{}
	for _, r := range f.srv.RequestsTo("GET /api/memories") {
		versions[r.Query.Get("pipeline_version")] = true
	}
	gt.True(t, versions["v1"])
	gt.True(t, versions["v2"])
}

func TestMemoriesFilterSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	gt.NoError(t, f.store.Set(ctx, 1))

	memories := page.NewMemories(f.store, f.client, page.WithVersions([]model.PipelineVersion{model.PipelineV1}))
	gt.NoError(t, memories.Mount(ctx))
	defer memories.Unmount()
	f.srv.Reset()

	gt.NoError(t, memories.FilterSession(ctx, 11))
	gt.A(t, memories.Snapshot().Data.Get(model.PipelineV1)).Length(1)

	reqs := f.srv.RequestsTo("GET /api/memories")
	gt.A(t, reqs).Length(1)
	gt.Equal(t, reqs[0].Query.Get("session_id"), "11")
}

func TestMemoriesFilterSessionDuringUserChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	gt.NoError(t, f.store.Set(ctx, 1))

	memories := page.NewMemories(f.store, f.client, page.WithVersions([]model.PipelineVersion{model.PipelineV1}))
	gt.NoError(t, memories.Mount(ctx))
	defer memories.Unmount()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 5 {
			_ = memories.FilterSession(ctx, model.SessionID(10+i%2))
		}
	}()
	go func() {
		defer wg.Done()
		for i := range 5 {
			_ = f.store.Set(ctx, model.UserID(1+i%2))
		}
	}()
	wg.Wait()

	gt.NoError(t, f.store.Set(ctx, 1))
	gt.NoError(t, memories.FilterSession(ctx, 11))
	gt.Equal(t, memories.SessionFilter(), model.SessionID(11))
	gt.A(t, memories.Snapshot().Data.Get(model.PipelineV1)).Length(1)

	reqs := f.srv.RequestsTo("GET /api/memories")
	gt.Equal(t, reqs[len(reqs)-1].Query.Get("session_id"), "11")
}

func TestVersionedFailureFailsWholeView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gt.NoError(t, f.store.Set(ctx, 1))
	f.srv.Fail("GET /api/chapters", backendtest.Failure{Status: http.StatusBadGateway})

	chapters := page.NewChapters(f.store, f.client)
	gt.Error(t, chapters.Mount(ctx))
	defer chapters.Unmount()
	gt.Equal(t, chapters.Snapshot().State, view.Failed)
	gt.False(t, chapters.Snapshot().HasData)
}

func TestMemorySelection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	gt.NoError(t, f.store.Set(ctx, 1))

	memories := page.NewMemories(f.store, f.client)
	gt.NoError(t, memories.Mount(ctx))
	defer memories.Unmount()
	f.srv.Reset()

	gt.NoError(t, memories.Select(ctx, 2))
	gt.Equal(t, memories.Detail().Data.Summary, "moved to Paris")
	gt.A(t, f.srv.RequestsTo("GET /api/memories/2")).Length(1)

	memories.ClearSelection()
	gt.Equal(t, memories.Detail().State, view.Idle)
	gt.Equal(t, memories.Snapshot().State, view.Ready)
	gt.A(t, f.srv.RequestsTo("GET /api/memories")).Length(0)
}

func TestUserChangeClearsSelection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	gt.NoError(t, f.store.Set(ctx, 1))

	memories := page.NewMemories(f.store, f.client)
	gt.NoError(t, memories.Mount(ctx))
	defer memories.Unmount()
	gt.NoError(t, memories.Select(ctx, 1))

	gt.NoError(t, f.store.Set(ctx, 2))
	gt.Equal(t, memories.Detail().State, view.Idle)
	gt.A(t, memories.Snapshot().Data.Get(model.PipelineV2)).Length(1)
}

func TestPersonSelectionAndMerge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	f.srv.Persons = []*model.Person{
		{ID: 1, UserID: 1, DisplayName: "Mom", Type: "family", PipelineVersion: model.PipelineV1},
		{ID: 2, UserID: 1, DisplayName: "Mother", Type: "family", PipelineVersion: model.PipelineV1},
	}
	f.srv.PersonLink[1] = []model.MemoryID{1}
	f.srv.PersonLink[2] = []model.MemoryID{2, 3}
	gt.NoError(t, f.store.Set(ctx, 1))

	persons := page.NewPersons(f.store, f.client)
	gt.NoError(t, persons.Mount(ctx))
	defer persons.Unmount()
	f.srv.Reset()

	gt.NoError(t, persons.Select(ctx, 2))
	detail := persons.Detail().Data
	gt.Equal(t, detail.Person.DisplayName, "Mother")
	gt.A(t, detail.Memories).Length(2)
	// the person came from the list
	gt.A(t, f.srv.RequestsTo("GET /api/persons/2")).Length(0)

	_, err := persons.Merge(ctx, 2, 2)
	gt.Error(t, err)

	result, err := persons.Merge(ctx, 2, 1)
	gt.NoError(t, err).Required()
	gt.S(t, result.Message).Contains("merged")
	gt.Equal(t, persons.Detail().State, view.Idle)
	gt.A(t, persons.Snapshot().Data.Get(model.PipelineV1)).Length(1)

	gt.NoError(t, persons.Select(ctx, 1))
	gt.A(t, persons.Detail().Data.Memories).Length(3)
}

func TestChapterSelection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedMemories(f.srv)
	f.srv.Chapters = []*model.Chapter{
		{ID: 7, UserID: 1, Title: "Childhood", OrderIndex: 0, Status: "draft", PipelineVersion: model.PipelineV2},
	}
	f.srv.Links[7] = []model.MemoryID{1, 2}
	f.srv.Coverage[7] = &model.Coverage{ChapterID: 7, TotalMemories: 3, ChapterMemories: 2, CoveragePercent: 66.7}
	gt.NoError(t, f.store.Set(ctx, 1))

	chapters := page.NewChapters(f.store, f.client)
	gt.NoError(t, chapters.Mount(ctx))
	defer chapters.Unmount()
	gt.A(t, chapters.Snapshot().Data.Get(model.PipelineV1)).Length(0)
	gt.A(t, chapters.Snapshot().Data.Get(model.PipelineV2)).Length(1)
	f.srv.Reset()

	gt.NoError(t, chapters.Select(ctx, 7))
	detail := chapters.Detail().Data
	gt.Equal(t, detail.Chapter.Title, "Childhood")
	gt.A(t, detail.Memories).Length(2)
	gt.Equal(t, detail.Coverage.ChapterMemories, 2)
	gt.A(t, f.srv.RequestsTo("GET /api/chapters/7/memories")).Length(1)
	gt.A(t, f.srv.RequestsTo("GET /api/chapters/7/coverage")).Length(1)
	gt.A(t, f.srv.RequestsTo("GET /api/chapters/7")).Length(0)

	// a chapter outside the loaded list is fetched on its own
	f.srv.Lock()
	f.srv.Chapters = append(f.srv.Chapters, &model.Chapter{ID: 8, UserID: 1, Title: "Later"})
	f.srv.Coverage[8] = &model.Coverage{ChapterID: 8}
	f.srv.Unlock()
	gt.NoError(t, chapters.Select(ctx, 8))
	gt.Equal(t, chapters.Detail().Data.Chapter.Title, "Later")
}

func TestChapterSelectionFailsAsAWhole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.Chapters = []*model.Chapter{{ID: 7, UserID: 1, Title: "Childhood", PipelineVersion: model.PipelineV1}}
	gt.NoError(t, f.store.Set(ctx, 1))

	chapters := page.NewChapters(f.store, f.client)
	gt.NoError(t, chapters.Mount(ctx))
	defer chapters.Unmount()

	// no coverage seeded for chapter 7
	gt.Error(t, chapters.Select(ctx, 7))
	detail := chapters.Detail()
	gt.Equal(t, detail.State, view.Failed)
	gt.False(t, detail.HasData)
}
