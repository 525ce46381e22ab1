package adapter

import (
	"context"
	"net/http"

	"github.com/m-mizutani/lifebook/pkg/model"
)

func (x *BackendClient) ListMemories(ctx context.Context, filter MemoryFilter) ([]*model.Memory, error) {
	var memories []*model.Memory
	if err := x.do(ctx, http.MethodGet, "/api/memories", filter.Query(), nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

func (x *BackendClient) GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error) {
	var memory model.Memory
	if err := x.do(ctx, http.MethodGet, "/api/memories/"+id.String(), nil, nil, &memory); err != nil {
		return nil, err
	}
	return &memory, nil
}

func (x *BackendClient) ListPersons(ctx context.Context, filter PersonFilter) ([]*model.Person, error) {
	var persons []*model.Person
	if err := x.do(ctx, http.MethodGet, "/api/persons", filter.Query(), nil, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

func (x *BackendClient) GetPerson(ctx context.Context, id model.PersonID) (*model.Person, error) {
	var person model.Person
	if err := x.do(ctx, http.MethodGet, "/api/persons/"+id.String(), nil, nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (x *BackendClient) ListPersonMemories(ctx context.Context, id model.PersonID) ([]*model.Memory, error) {
	var memories []*model.Memory
	if err := x.do(ctx, http.MethodGet, "/api/persons/"+id.String()+"/memories", nil, nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// MergePersons folds source into target. The backend deletes source.
func (x *BackendClient) MergePersons(ctx context.Context, source, target model.PersonID) (*model.MergeResult, error) {
	body := map[string]any{"target_person_id": target}

	var result model.MergeResult
	if err := x.do(ctx, http.MethodPost, "/api/persons/"+source.String()+"/merge", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (x *BackendClient) ListChapters(ctx context.Context, filter ChapterFilter) ([]*model.Chapter, error) {
	var chapters []*model.Chapter
	if err := x.do(ctx, http.MethodGet, "/api/chapters", filter.Query(), nil, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

func (x *BackendClient) GetChapter(ctx context.Context, id model.ChapterID) (*model.Chapter, error) {
	var chapter model.Chapter
	if err := x.do(ctx, http.MethodGet, "/api/chapters/"+id.String(), nil, nil, &chapter); err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (x *BackendClient) ListChapterMemories(ctx context.Context, id model.ChapterID) ([]*model.Memory, error) {
	var memories []*model.Memory
	if err := x.do(ctx, http.MethodGet, "/api/chapters/"+id.String()+"/memories", nil, nil, &memories); err != nil {
		return nil, err
	}
	return memories, nil
}

func (x *BackendClient) GetChapterCoverage(ctx context.Context, id model.ChapterID) (*model.Coverage, error) {
	var coverage model.Coverage
	if err := x.do(ctx, http.MethodGet, "/api/chapters/"+id.String()+"/coverage", nil, nil, &coverage); err != nil {
		return nil, err
	}
	return &coverage, nil
}
