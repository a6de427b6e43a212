package species

import "context"

type Repository interface {
	ListSpecies(ctx context.Context) ([]Species, error)
	GetSpecies(ctx context.Context, id string) (Species, error)
	ListBreeds(ctx context.Context, speciesID string) ([]Breed, error)
	GetBreed(ctx context.Context, id string) (Breed, error)
}
