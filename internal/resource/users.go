package resource

import (
	"context"
	"log/slog"

	"github.com/shopadmin/internal/model"
)

// UsersBackend is the account wire surface. Accounts are created by
// registering, never by an admin.
type UsersBackend interface {
	List(ctx context.Context, page, limit int) (model.Page[model.User], error)
	Get(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type userBackend struct {
	UsersBackend
}

func (userBackend) Create(context.Context, model.UserPatch) (*model.User, error) {
	return nil, ErrUnsupported
}

type Users = Synchronizer[model.User, model.UserPatch]

func NewUsers(backend UsersBackend, logger *slog.Logger) *Users {
	return NewSynchronizer[model.User, model.UserPatch]("users", userBackend{backend},
		func(u model.User) string { return u.ID },
		messagesFor("user", "users"), logger)
}
