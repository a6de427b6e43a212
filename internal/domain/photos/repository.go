package photos

import "context"

type Repository interface {
	Create(ctx context.Context, p Photo) error
	GetByID(ctx context.Context, id string) (Photo, error)
	// ListByPet devuelve las fotos más nuevas primero.
	ListByPet(ctx context.Context, petID string) ([]Photo, error)
	Delete(ctx context.Context, id string) error
}
