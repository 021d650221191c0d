package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// transactLimit is the DynamoDB cap on items per TransactWriteItems call.
// Batches beyond it are committed in chunks.
const transactLimit = 100

// UnitOfWork implements ports.UnitOfWork over DynamoDB transactions. Writes
// registered through the transactional repositories are staged in memory and
// committed with TransactWriteItems; reads pass through to the underlying
// repositories and see only committed state.
type UnitOfWork struct {
	client        *dynamodb.Client
	logger        *zap.Logger
	ingredients   *IngredientRepository
	aliases       *AliasRepository
	snapshotLines *SnapshotLineRepository
	eventStore    *EventStore

	mu        sync.Mutex
	active    bool
	committed bool
	staged    []types.TransactWriteItem
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.active {
		return errors.New("unit of work already active")
	}

	u.active = true
	u.committed = false
	u.staged = u.staged[:0]
	return nil
}

// Commit writes every staged item transactionally. A batch larger than the
// DynamoDB transaction cap is committed in chunks; catalog operations stay
// far below it in practice.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("unit of work is not active")
	}

	for i := 0; i < len(u.staged); i += transactLimit {
		end := i + transactLimit
		if end > len(u.staged) {
			end = len(u.staged)
		}

		_, err := u.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: u.staged[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	u.logger.Debug("Unit of work committed", zap.Int("items", len(u.staged)))

	u.active = false
	u.committed = true
	u.staged = nil
	return nil
}

// Rollback discards staged writes. It is a no-op after a successful commit,
// so handlers can defer it unconditionally.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.committed || !u.active {
		return nil
	}

	u.logger.Debug("Unit of work rolled back", zap.Int("discarded", len(u.staged)))

	u.active = false
	u.staged = nil
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

func (u *UnitOfWork) stage(item types.TransactWriteItem) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return errors.New("unit of work is not active")
	}

	u.staged = append(u.staged, item)
	return nil
}

// txIngredientRepository stages writes on the unit of work and reads through
type txIngredientRepository struct {
	uow *UnitOfWork
}

func (r *txIngredientRepository) Save(ctx context.Context, ingredient *entities.Ingredient) error {
	item, err := r.uow.ingredients.PrepareSaveItem(ingredient)
	if err != nil {
		return err
	}
	return r.uow.stage(item)
}

func (r *txIngredientRepository) GetByID(ctx context.Context, id valueobjects.IngredientID) (*entities.Ingredient, error) {
	return r.uow.ingredients.GetByID(ctx, id)
}

func (r *txIngredientRepository) GetBySlug(ctx context.Context, slug string) (*entities.Ingredient, error) {
	return r.uow.ingredients.GetBySlug(ctx, slug)
}

func (r *txIngredientRepository) GetAll(ctx context.Context) ([]*entities.Ingredient, error) {
	return r.uow.ingredients.GetAll(ctx)
}

func (r *txIngredientRepository) GetByParentID(ctx context.Context, parentID valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	return r.uow.ingredients.GetByParentID(ctx, parentID)
}

func (r *txIngredientRepository) GetRoots(ctx context.Context) ([]*entities.Ingredient, error) {
	return r.uow.ingredients.GetRoots(ctx)
}

func (r *txIngredientRepository) Delete(ctx context.Context, id valueobjects.IngredientID) error {
	return r.uow.stage(r.uow.ingredients.PrepareDeleteItem(id))
}

func (r *txIngredientRepository) BulkSave(ctx context.Context, ingredients []*entities.Ingredient) error {
	for _, ingredient := range ingredients {
		if err := r.Save(ctx, ingredient); err != nil {
			return err
		}
	}
	return nil
}

// txAliasRepository stages writes on the unit of work and reads through
type txAliasRepository struct {
	uow *UnitOfWork
}

func (r *txAliasRepository) Save(ctx context.Context, alias *entities.Alias) error {
	item, err := r.uow.aliases.PrepareSaveItem(alias)
	if err != nil {
		return err
	}
	return r.uow.stage(item)
}

func (r *txAliasRepository) GetByID(ctx context.Context, id string) (*entities.Alias, error) {
	return r.uow.aliases.GetByID(ctx, id)
}

func (r *txAliasRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.Alias, error) {
	return r.uow.aliases.GetByIngredientID(ctx, ingredientID)
}

func (r *txAliasRepository) FindByName(ctx context.Context, name string) ([]*entities.Alias, error) {
	return r.uow.aliases.FindByName(ctx, name)
}

func (r *txAliasRepository) Delete(ctx context.Context, id string) error {
	return r.uow.stage(r.uow.aliases.PrepareDeleteItem(id))
}

func (r *txAliasRepository) DeleteByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) error {
	aliases, err := r.uow.aliases.GetByIngredientID(ctx, ingredientID)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		if err := r.Delete(ctx, alias.ID()); err != nil {
			return err
		}
	}
	return nil
}

func (r *txAliasRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	return r.uow.aliases.CountByIngredientID(ctx, ingredientID)
}

// txSnapshotLineRepository stages writes on the unit of work and reads through
type txSnapshotLineRepository struct {
	uow *UnitOfWork
}

func (r *txSnapshotLineRepository) Save(ctx context.Context, line *entities.SnapshotLine) error {
	item, err := r.uow.snapshotLines.PrepareSaveItem(line)
	if err != nil {
		return err
	}
	return r.uow.stage(item)
}

func (r *txSnapshotLineRepository) GetByID(ctx context.Context, id string) (*entities.SnapshotLine, error) {
	return r.uow.snapshotLines.GetByID(ctx, id)
}

func (r *txSnapshotLineRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.SnapshotLine, error) {
	return r.uow.snapshotLines.GetByIngredientID(ctx, ingredientID)
}

func (r *txSnapshotLineRepository) GetBySnapshotID(ctx context.Context, snapshotID string) ([]*entities.SnapshotLine, error) {
	return r.uow.snapshotLines.GetBySnapshotID(ctx, snapshotID)
}

func (r *txSnapshotLineRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	return r.uow.snapshotLines.CountByIngredientID(ctx, ingredientID)
}

// txEventStore stages event writes so they commit atomically with state
type txEventStore struct {
	uow *UnitOfWork
}

func (s *txEventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		item, err := s.uow.eventStore.PrepareEventItem(event)
		if err != nil {
			return err
		}
		if err := s.uow.stage(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *txEventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	return s.uow.eventStore.GetEvents(ctx, aggregateID)
}

func (s *txEventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	return s.uow.eventStore.GetEventsByType(ctx, eventType, limit)
}

// UnitOfWorkFactory builds a fresh DynamoDB unit of work per operation
type UnitOfWorkFactory struct {
	client        *dynamodb.Client
	logger        *zap.Logger
	ingredients   *IngredientRepository
	aliases       *AliasRepository
	snapshotLines *SnapshotLineRepository
	eventStore    *EventStore
}

// NewUnitOfWorkFactory creates a factory bound to the shared repositories
func NewUnitOfWorkFactory(
	client *dynamodb.Client,
	ingredients *IngredientRepository,
	aliases *AliasRepository,
	snapshotLines *SnapshotLineRepository,
	eventStore *EventStore,
	logger *zap.Logger,
) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		client:        client,
		logger:        logger,
		ingredients:   ingredients,
		aliases:       aliases,
		snapshotLines: snapshotLines,
		eventStore:    eventStore,
	}
}

// New returns an unstarted unit of work; callers Begin it themselves
func (f *UnitOfWorkFactory) New(ctx context.Context) (ports.UnitOfWork, error) {
	return &UnitOfWork{
		client:        f.client,
		logger:        f.logger,
		ingredients:   f.ingredients,
		aliases:       f.aliases,
		snapshotLines: f.snapshotLines,
		eventStore:    f.eventStore,
	}, nil
}
