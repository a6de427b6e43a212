// Package memory guarda todo en mapas protegidos por un único RWMutex.
// Se usa cuando no hay base configurada y en tests.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"petpal/internal/domain/accessgrants"
	"petpal/internal/domain/journal"
	"petpal/internal/domain/pets"
	"petpal/internal/domain/photos"
	"petpal/internal/domain/species"
	"petpal/internal/domain/trackers"
	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"
)

var (
	ErrNotFound = apperr.ErrNotFound
	ErrConflict = apperr.ErrConflict
)

var errIDRequired = errors.New("memory: id required")

// Store comparte el mismo lock entre repos para que el borrado en cascada
// sea atómico.
type Store struct {
	mu sync.RWMutex

	users      map[string]users.User
	species    map[string]species.Species
	breeds     map[string]species.Breed
	pets       map[string]pets.Pet
	photos     map[string]photos.Photo
	entries    map[string]journal.Entry
	careEvents map[string]trackers.CareEvent
	grants     map[string]accessgrants.Grant
}

// New devuelve un store vacío con el catálogo de especies sembrado.
func New() *Store {
	s := &Store{
		users:      map[string]users.User{},
		species:    map[string]species.Species{},
		breeds:     map[string]species.Breed{},
		pets:       map[string]pets.Pet{},
		photos:     map[string]photos.Photo{},
		entries:    map[string]journal.Entry{},
		careEvents: map[string]trackers.CareEvent{},
		grants:     map[string]accessgrants.Grant{},
	}
	sp, br := species.Catalog()
	for _, x := range sp {
		s.species[x.ID] = x
	}
	for _, b := range br {
		s.breeds[b.ID] = b
	}
	return s
}

func (s *Store) Users() users.Repository               { return &userRepo{s} }
func (s *Store) Species() species.Repository           { return &speciesRepo{s} }
func (s *Store) Pets() pets.Repository                 { return &petRepo{s} }
func (s *Store) Photos() photos.Repository             { return &photoRepo{s} }
func (s *Store) Journal() journal.Repository           { return &entryRepo{s} }
func (s *Store) CareEvents() trackers.Repository       { return &careEventRepo{s} }
func (s *Store) AccessGrants() accessgrants.Repository { return &grantRepo{s} }

func notFound(kind, id string) error {
	return fmt.Errorf("memory: %s %q: %w", kind, id, ErrNotFound)
}
