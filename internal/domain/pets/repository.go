package pets

import "context"

type Repository interface {
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error
	GetByID(ctx context.Context, id string) (Pet, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error)

	// DeleteCascade borra la mascota con sus eventos, entradas, fotos y grants
	// en una sola transacción. Devuelve los archivos de imagen que quedaron huérfanos.
	DeleteCascade(ctx context.Context, id string) ([]string, error)
}
