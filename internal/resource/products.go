package resource

import (
	"log/slog"

	"github.com/shopadmin/internal/model"
)

type Products = Synchronizer[model.Product, model.ProductInput]

func NewProducts(backend Backend[model.Product, model.ProductInput], logger *slog.Logger) *Products {
	return NewSynchronizer("products", backend,
		func(p model.Product) string { return p.ID },
		messagesFor("product", "products"), logger)
}
