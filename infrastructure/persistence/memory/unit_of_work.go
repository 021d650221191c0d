package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"
	pkgerrors "pantry-backend/pkg/errors"
)

var errTxNotActive = errors.New("memory: transaction not active")

// UnitOfWork implements ports.UnitOfWork by cloning the store state on
// Begin, applying every write to the clone, and swapping the clone back in
// on Commit. Rollback simply discards the clone.
type UnitOfWork struct {
	store *Store

	mu        sync.Mutex
	active    bool
	committed bool
	working   catalogState
	pending   []events.DomainEvent
}

// Begin snapshots the committed state into a private working copy
func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active {
		return errors.New("memory: transaction already started")
	}

	u.store.mu.RLock()
	u.working = u.store.state.clone()
	u.store.mu.RUnlock()

	u.active = true
	u.committed = false
	u.pending = nil
	return nil
}

// Commit swaps the working copy into the store and appends staged events
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errTxNotActive
	}

	u.store.mu.Lock()
	u.store.state = u.working
	u.store.events = append(u.store.events, u.pending...)
	u.store.mu.Unlock()

	u.active = false
	u.committed = true
	u.pending = nil
	return nil
}

// Rollback discards the working copy. Calling it after Commit is a no-op,
// so handlers can defer it unconditionally.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active || u.committed {
		return nil
	}

	u.active = false
	u.working = catalogState{}
	u.pending = nil
	return nil
}

// Ingredients returns the transactional ingredient repository
func (u *UnitOfWork) Ingredients() ports.IngredientRepository {
	return &txIngredientRepository{uow: u}
}

// Aliases returns the transactional alias repository
func (u *UnitOfWork) Aliases() ports.AliasRepository {
	return &txAliasRepository{uow: u}
}

// SnapshotLines returns the transactional snapshot line repository
func (u *UnitOfWork) SnapshotLines() ports.SnapshotLineRepository {
	return &txSnapshotLineRepository{uow: u}
}

// Events returns the transactional event store
func (u *UnitOfWork) Events() ports.EventStore {
	return &txEventStore{uow: u}
}

// guard locks the unit of work and verifies the transaction is open. The
// returned function releases the lock.
func (u *UnitOfWork) guard() (func(), error) {
	u.mu.Lock()
	if !u.active {
		u.mu.Unlock()
		return nil, errTxNotActive
	}
	return u.mu.Unlock, nil
}

type txIngredientRepository struct {
	uow *UnitOfWork
}

func (r *txIngredientRepository) Save(ctx context.Context, ingredient *entities.Ingredient) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	r.uow.working.putIngredient(ingredient)
	return nil
}

func (r *txIngredientRepository) GetByID(ctx context.Context, id valueobjects.IngredientID) (*entities.Ingredient, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	return findIngredient(&r.uow.working, id.String())
}

func (r *txIngredientRepository) GetBySlug(ctx context.Context, slug string) (*entities.Ingredient, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	id, ok := r.uow.working.slugs[slug]
	if !ok {
		return nil, pkgerrors.NewIngredientNotFound(slug)
	}
	return findIngredient(&r.uow.working, id)
}

func (r *txIngredientRepository) GetAll(ctx context.Context) ([]*entities.Ingredient, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	return allIngredients(&r.uow.working), nil
}

func (r *txIngredientRepository) GetByParentID(ctx context.Context, parentID valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var children []*entities.Ingredient
	for _, ingredient := range r.uow.working.ingredients {
		if pid := ingredient.ParentID(); pid != nil && pid.Equals(parentID) {
			children = append(children, cloneIngredient(ingredient))
		}
	}
	sortBySlug(children)
	return children, nil
}

func (r *txIngredientRepository) GetRoots(ctx context.Context) ([]*entities.Ingredient, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var roots []*entities.Ingredient
	for _, ingredient := range r.uow.working.ingredients {
		if ingredient.IsRoot() {
			roots = append(roots, cloneIngredient(ingredient))
		}
	}
	sortBySlug(roots)
	return roots, nil
}

func (r *txIngredientRepository) Delete(ctx context.Context, id valueobjects.IngredientID) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	r.uow.working.removeIngredient(id.String())
	return nil
}

func (r *txIngredientRepository) BulkSave(ctx context.Context, ingredients []*entities.Ingredient) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	for _, ingredient := range ingredients {
		r.uow.working.putIngredient(ingredient)
	}
	return nil
}

type txAliasRepository struct {
	uow *UnitOfWork
}

func (r *txAliasRepository) Save(ctx context.Context, alias *entities.Alias) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	r.uow.working.putAlias(alias)
	return nil
}

func (r *txAliasRepository) GetByID(ctx context.Context, id string) (*entities.Alias, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	alias, ok := r.uow.working.aliases[id]
	if !ok {
		return nil, pkgerrors.NewAliasNotFound(id)
	}
	return cloneAlias(alias), nil
}

func (r *txAliasRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.Alias, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	return aliasesOf(&r.uow.working, ingredientID), nil
}

func (r *txAliasRepository) FindByName(ctx context.Context, name string) ([]*entities.Alias, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var matches []*entities.Alias
	for _, alias := range r.uow.working.aliases {
		if strings.EqualFold(alias.Name(), strings.TrimSpace(name)) {
			matches = append(matches, cloneAlias(alias))
		}
	}
	sortAliases(matches)
	return matches, nil
}

func (r *txAliasRepository) Delete(ctx context.Context, id string) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	delete(r.uow.working.aliases, id)
	return nil
}

func (r *txAliasRepository) DeleteByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	for id, alias := range r.uow.working.aliases {
		if alias.IngredientID().Equals(ingredientID) {
			delete(r.uow.working.aliases, id)
		}
	}
	return nil
}

func (r *txAliasRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	done, err := r.uow.guard()
	if err != nil {
		return 0, err
	}
	defer done()

	count := 0
	for _, alias := range r.uow.working.aliases {
		if alias.IngredientID().Equals(ingredientID) {
			count++
		}
	}
	return count, nil
}

type txSnapshotLineRepository struct {
	uow *UnitOfWork
}

func (r *txSnapshotLineRepository) Save(ctx context.Context, line *entities.SnapshotLine) error {
	done, err := r.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	r.uow.working.putSnapshotLine(line)
	return nil
}

func (r *txSnapshotLineRepository) GetByID(ctx context.Context, id string) (*entities.SnapshotLine, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	line, ok := r.uow.working.snapshotLines[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("snapshot line " + id)
	}
	return cloneSnapshotLine(line), nil
}

func (r *txSnapshotLineRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.SnapshotLine, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	return linesOf(&r.uow.working, ingredientID), nil
}

func (r *txSnapshotLineRepository) GetBySnapshotID(ctx context.Context, snapshotID string) ([]*entities.SnapshotLine, error) {
	done, err := r.uow.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var lines []*entities.SnapshotLine
	for _, line := range r.uow.working.snapshotLines {
		if line.SnapshotID() == snapshotID {
			lines = append(lines, cloneSnapshotLine(line))
		}
	}
	sortLines(lines)
	return lines, nil
}

func (r *txSnapshotLineRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	done, err := r.uow.guard()
	if err != nil {
		return 0, err
	}
	defer done()

	count := 0
	for _, line := range r.uow.working.snapshotLines {
		if line.References(ingredientID) {
			count++
		}
	}
	return count, nil
}

type txEventStore struct {
	uow *UnitOfWork
}

func (s *txEventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	done, err := s.uow.guard()
	if err != nil {
		return err
	}
	defer done()

	s.uow.pending = append(s.uow.pending, domainEvents...)
	return nil
}

func (s *txEventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	return NewEventStore(s.uow.store).GetEvents(ctx, aggregateID)
}

func (s *txEventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	return NewEventStore(s.uow.store).GetEventsByType(ctx, eventType, limit)
}

// UnitOfWorkFactory builds units of work over one shared store
type UnitOfWorkFactory struct {
	store *Store
}

// NewUnitOfWorkFactory creates an in-memory unit of work factory
func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

// New returns a unit of work that has not yet begun
func (f *UnitOfWorkFactory) New(ctx context.Context) (ports.UnitOfWork, error) {
	return &UnitOfWork{store: f.store}, nil
}

var (
	_ ports.IngredientRepository   = (*IngredientRepository)(nil)
	_ ports.AliasRepository        = (*AliasRepository)(nil)
	_ ports.SnapshotLineRepository = (*SnapshotLineRepository)(nil)
	_ ports.UsageReader            = (*UsageReader)(nil)
	_ ports.EventStore             = (*EventStore)(nil)
	_ ports.UnitOfWork             = (*UnitOfWork)(nil)
	_ ports.UnitOfWorkFactory      = (*UnitOfWorkFactory)(nil)
)
