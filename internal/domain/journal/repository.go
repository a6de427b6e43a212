package journal

import "context"

type Repository interface {
	Create(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
	GetByID(ctx context.Context, id string) (Entry, error)
	// ListByPet ordena por fecha descendente (y creación descendente a igual fecha).
	ListByPet(ctx context.Context, petID string) ([]Entry, error)
	Delete(ctx context.Context, id string) error
}
