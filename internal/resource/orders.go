package resource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
)

// OrdersBackend is the order wire surface. Orders cannot be edited or
// deleted, only moved along their lifecycle.
type OrdersBackend interface {
	List(ctx context.Context, page, limit int) (model.Page[model.Order], error)
	Get(ctx context.Context, id string) (*model.Order, error)
	Create(ctx context.Context, in model.OrderInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
}

type orderBackend struct {
	OrdersBackend
}

func (orderBackend) Update(context.Context, string, model.OrderInput) (*model.Order, error) {
	return nil, ErrUnsupported
}

func (orderBackend) Delete(context.Context, string) error {
	return ErrUnsupported
}

type Orders struct {
	*Synchronizer[model.Order, model.OrderInput]
	backend OrdersBackend
}

func NewOrders(backend OrdersBackend, logger *slog.Logger) *Orders {
	return &Orders{
		Synchronizer: NewSynchronizer[model.Order, model.OrderInput]("orders", orderBackend{backend},
			func(o model.Order) string { return o.ID },
			messagesFor("order", "orders"), logger),
		backend: backend,
	}
}

// SetStatus moves order to status. Illegal transitions are refused with
// a validation error before any request is sent. On success the cached
// order is replaced with the server's copy.
func (o *Orders) SetStatus(ctx context.Context, order model.Order, status model.OrderStatus) (_ *model.Order, err error) {
	if err := order.Status.ValidateTransition(status); err != nil {
		return nil, o.fail("set_status", fmt.Errorf("%w: %w", ErrIllegalTransition, apiclient.Validation(err.Error())))
	}

	o.begin()
	defer func() { o.end("set_status", err, "Failed to update order status") }()

	updated, err := o.backend.UpdateStatus(ctx, order.ID, status)
	if err != nil {
		return nil, err
	}
	o.replace(order.ID, *updated)
	return updated, nil
}
