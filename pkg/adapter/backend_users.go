package adapter

import (
	"context"
	"net/http"

	"github.com/m-mizutani/lifebook/pkg/model"
)

func (x *BackendClient) ListUsers(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	if err := x.do(ctx, http.MethodGet, "/api/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (x *BackendClient) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := x.do(ctx, http.MethodGet, "/api/users/"+id.String(), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a user. The backend picks a default name when name is empty.
func (x *BackendClient) CreateUser(ctx context.Context, name string) (*model.User, error) {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}

	var user model.User
	if err := x.do(ctx, http.MethodPost, "/api/users", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (x *BackendClient) DeleteUser(ctx context.Context, id model.UserID) error {
	return x.do(ctx, http.MethodDelete, "/api/users/"+id.String(), nil, nil, nil)
}
