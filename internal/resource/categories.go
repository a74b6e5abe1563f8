package resource

import (
	"log/slog"

	"github.com/shopadmin/internal/model"
)

// Categories are paged locally; the backend returns the whole
// collection at once. Deleting a category leaves products that
// reference it untouched.
type Categories = Synchronizer[model.Category, model.CategoryInput]

func NewCategories(backend Backend[model.Category, model.CategoryInput], logger *slog.Logger) *Categories {
	return NewSynchronizer("categories", backend,
		func(c model.Category) string { return c.ID },
		messagesFor("category", "categories"), logger)
}
