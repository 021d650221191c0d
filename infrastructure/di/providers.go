package di

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"pantry-backend/application/commands"
	"pantry-backend/application/commands/bus"
	commands_handlers "pantry-backend/application/commands/handlers"
	"pantry-backend/application/ports"
	"pantry-backend/application/queries"
	querybus "pantry-backend/application/queries/bus"
	queries_handlers "pantry-backend/application/queries/handlers"
	appservices "pantry-backend/application/services"
	domaincfg "pantry-backend/domain/config"
	domainservices "pantry-backend/domain/core/services"
	"pantry-backend/domain/events"
	"pantry-backend/domain/versioning"
	"pantry-backend/infrastructure/config"
	"pantry-backend/infrastructure/messaging/eventbridge"
	"pantry-backend/infrastructure/messaging/local"
	"pantry-backend/infrastructure/persistence/dynamodb"
	"pantry-backend/infrastructure/persistence/memory"
	"pantry-backend/infrastructure/persistence/sqlite"
	"pantry-backend/pkg/auth"
	"pantry-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Persistence *Persistence
	EventBus    ports.EventBus
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Cache       ports.Cache
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
	RateLimiter auth.RateLimiter
	Outbox      *dynamodb.OutboxProcessor

	// LeafValidator is the capability boundary downstream recipe and
	// product linking code composes against.
	LeafValidator *appservices.CatalogLeafValidator
}

// Close releases resources owned by the container
func (c *Container) Close() error {
	return c.Persistence.Close()
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// Persistence bundles the storage ports for the driver named in config. All
// three drivers satisfy the same ports, so the rest of the application never
// learns which one it is running on.
type Persistence struct {
	Ingredients   ports.IngredientRepository
	Aliases       ports.AliasRepository
	SnapshotLines ports.SnapshotLineRepository
	Usage         ports.UsageReader
	Events        ports.EventStore
	UnitOfWork    ports.UnitOfWorkFactory
	CatalogLock   ports.CatalogLock

	// sqliteStore is kept so Close can release the database file.
	sqliteStore *sqlite.Store
	// dynamoEvents is kept so the outbox relay can drain pending events.
	dynamoEvents *dynamodb.EventStore
}

// Close releases driver-owned resources
func (p *Persistence) Close() error {
	if p.sqliteStore != nil {
		return p.sqliteStore.Close()
	}
	return nil
}

// OutboxStore exposes the event store with outbox support, or nil when the
// selected driver has none.
func (p *Persistence) OutboxStore() *dynamodb.EventStore {
	return p.dynamoEvents
}

// ProvidePersistence selects and constructs the catalog storage driver
func ProvidePersistence(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (*Persistence, error) {
	switch cfg.CatalogDriver {
	case config.DriverMemory:
		store := memory.NewStore()
		return &Persistence{
			Ingredients:   memory.NewIngredientRepository(store),
			Aliases:       memory.NewAliasRepository(store),
			SnapshotLines: memory.NewSnapshotLineRepository(store),
			Usage:         memory.NewUsageReader(store),
			Events:        memory.NewEventStore(store),
			UnitOfWork:    memory.NewUnitOfWorkFactory(store),
			CatalogLock:   memory.NewCatalogLock(),
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite catalog: %w", err)
		}
		return &Persistence{
			Ingredients:   memory.NewIngredientRepository(store.Store),
			Aliases:       memory.NewAliasRepository(store.Store),
			SnapshotLines: memory.NewSnapshotLineRepository(store.Store),
			Usage:         memory.NewUsageReader(store.Store),
			Events:        memory.NewEventStore(store.Store),
			UnitOfWork:    sqlite.NewUnitOfWorkFactory(store),
			CatalogLock:   memory.NewCatalogLock(),
			sqliteStore:   store,
		}, nil

	case config.DriverDynamoDB:
		ingredients := dynamodb.NewIngredientRepository(client, cfg.DynamoDBTable, logger)
		aliases := dynamodb.NewAliasRepository(client, cfg.DynamoDBTable, logger)
		lines := dynamodb.NewSnapshotLineRepository(client, cfg.DynamoDBTable, logger)
		eventStore := dynamodb.NewEventStore(client, cfg.DynamoDBTable)
		return &Persistence{
			Ingredients:   ingredients,
			Aliases:       aliases,
			SnapshotLines: lines,
			Usage:         dynamodb.NewUsageReader(client, cfg.DynamoDBTable),
			Events:        eventStore,
			UnitOfWork:    dynamodb.NewUnitOfWorkFactory(client, ingredients, aliases, lines, eventStore, logger),
			CatalogLock:   dynamodb.NewCatalogLock(client, cfg.DynamoDBTable, logger),
			dynamoEvents:  eventStore,
		}, nil

	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.CatalogDriver)
	}
}

// catalogEventTypes lists every event the command handlers emit
var catalogEventTypes = []string{
	"ingredient.created",
	"ingredient.renamed",
	"ingredient.moved",
	"ingredient.deleted",
	"ingredient.alias_added",
	"ingredient.alias_removed",
	"catalog.imported",
}

// ProvideEventBus creates the in-process event bus the command handlers
// publish to after commit. Durable delivery to other services goes through
// the event store outbox and the relay, not through this bus.
func ProvideEventBus(cache ports.Cache, logger *zap.Logger) (ports.EventBus, error) {
	eventBus := local.NewBus(logger)

	invalidator := &cacheInvalidator{cache: cache, logger: logger}
	for _, eventType := range catalogEventTypes {
		if err := eventBus.Subscribe(eventType, invalidator); err != nil {
			return nil, err
		}
	}

	return eventBus, nil
}

// cacheInvalidator clears cached query results whenever the catalog mutates.
// Cached results embed ancestor paths and descendant counts, so per-key
// invalidation is not worth the bookkeeping.
type cacheInvalidator struct {
	cache  ports.Cache
	logger *zap.Logger
}

func (c *cacheInvalidator) Handle(ctx context.Context, event events.DomainEvent) error {
	c.logger.Debug("Invalidating query cache", zap.String("eventType", event.GetEventType()))
	return c.cache.Clear(ctx)
}

func (c *cacheInvalidator) CanHandle(eventType string) bool {
	return strings.HasPrefix(eventType, "ingredient.") || strings.HasPrefix(eventType, "catalog.")
}

// ProvideEventPublisher creates the EventBridge publisher the outbox relay
// drains pending events into
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideOutboxProcessor creates the relay worker, or nil when the selected
// driver keeps no outbox
func ProvideOutboxProcessor(p *Persistence, publisher ports.EventPublisher, logger *zap.Logger) *dynamodb.OutboxProcessor {
	if p.OutboxStore() == nil {
		return nil
	}
	return dynamodb.NewOutboxProcessor(p.OutboxStore(), publisher, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer("pantry-catalog")
}

// ProvideMetrics creates the CloudWatch metrics sink. With metrics disabled
// the sink is constructed without a client and every record is a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("Pantry/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideRateLimiter picks the limiter matching the deployment: Lambda
// instances share counters through DynamoDB, a standalone server keeps
// token buckets in memory.
func ProvideRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.CatalogDriver == config.DriverDynamoDB {
		return auth.NewDistributedRateLimiter(client, cfg.DynamoDBTable, cfg.RateLimitPerMinute, time.Minute, "API")
	}
	return auth.NewTokenBucketLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

// ProvideDomainConfig selects the taxonomy rule set for the environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	if cfg.IsProduction() {
		return domaincfg.ProductionDomainConfig()
	}
	return domaincfg.DefaultDomainConfig()
}

// ProvideHierarchyService creates the hierarchy walk service
func ProvideHierarchyService(domainCfg *domaincfg.DomainConfig) *domainservices.HierarchyService {
	return domainservices.NewHierarchyService(domainCfg)
}

// ProvideVersioningService creates the catalog versioning service
func ProvideVersioningService() *versioning.VersioningService {
	return versioning.NewVersioningService(20, true)
}

// ProvideLeafValidator creates the leaf-check boundary recipe and product
// linking code consumes
func ProvideLeafValidator(
	p *Persistence,
	hierarchy *domainservices.HierarchyService,
	domainCfg *domaincfg.DomainConfig,
) *appservices.CatalogLeafValidator {
	return appservices.NewCatalogLeafValidator(p.Ingredients, hierarchy, domainCfg)
}

// ProvideAliasService creates the alias resolution service
func ProvideAliasService(p *Persistence, logger *zap.Logger) *appservices.AliasService {
	return appservices.NewAliasService(p.Ingredients, p.Aliases, logger)
}

// ProvideConsistencyChecker creates the full-catalog invariant checker
func ProvideConsistencyChecker(
	p *Persistence,
	versioningService *versioning.VersioningService,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *appservices.ConsistencyChecker {
	return appservices.NewConsistencyChecker(p.Ingredients, versioningService, domainCfg, logger)
}

// tracingMiddleware wraps command handling in an X-Ray subsegment. Only
// wired when tracing is enabled; outside Lambda there is no parent segment
// to attach to.
func tracingMiddleware(tracer *observability.Tracer) bus.Middleware {
	return func(next bus.CommandHandler) bus.CommandHandler {
		return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			var result interface{}
			err := tracer.TraceFunction(ctx, reflect.TypeOf(cmd).Name(), func(ctx context.Context) error {
				var handleErr error
				result, handleErr = next.Handle(ctx, cmd)
				return handleErr
			})
			return result, err
		})
	}
}

// zapLoggerAdapter exposes zap through the bus Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Infow(msg, keysAndValues...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, keysAndValues...)
}

// ProvideCommandBus creates a command bus with every mutation handler
// registered behind the logging, validation, metrics and tracing middleware
func ProvideCommandBus(
	p *Persistence,
	eventBus ports.EventBus,
	versioningService *versioning.VersioningService,
	checker *appservices.ConsistencyChecker,
	domainCfg *domaincfg.DomainConfig,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	cfg *config.Config,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middleware := []bus.Middleware{
		bus.LoggingMiddleware(&zapLoggerAdapter{logger: logger}),
		bus.MetricsMiddleware(metrics),
	}
	if cfg.EnableTracing {
		middleware = append(middleware, tracingMiddleware(tracer))
	}
	middleware = append(middleware, bus.ValidationMiddleware())

	commandBus := bus.NewCommandBusWithMiddleware(middleware...)

	createHandler := commands.NewCreateIngredientHandler(p.UnitOfWork, p.CatalogLock, eventBus, logger)
	updateHandler := commands_handlers.NewUpdateIngredientHandler(p.UnitOfWork, eventBus, logger)
	moveHandler := commands_handlers.NewMoveIngredientHandler(p.UnitOfWork, p.CatalogLock, eventBus, domainCfg, logger)
	deleteHandler := commands_handlers.NewDeleteIngredientHandler(p.UnitOfWork, p.Usage, p.CatalogLock, eventBus, domainCfg, logger)
	importHandler := commands_handlers.NewImportCatalogHandler(p.UnitOfWork, p.CatalogLock, eventBus, versioningService, domainCfg, logger)
	addAliasHandler := commands_handlers.NewAddAliasHandler(p.UnitOfWork, eventBus, domainCfg, logger)
	removeAliasHandler := commands_handlers.NewRemoveAliasHandler(p.UnitOfWork, eventBus, logger)
	consistencyHandler := commands.NewCheckConsistencyHandler(checker, logger)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateIngredientCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.CreateIngredientCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return createHandler.Handle(ctx, c)
		})},
		{commands.UpdateIngredientCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.UpdateIngredientCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return updateHandler.Handle(ctx, c)
		})},
		{commands.MoveIngredientCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.MoveIngredientCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return moveHandler.Handle(ctx, c)
		})},
		{commands.DeleteIngredientCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.DeleteIngredientCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return deleteHandler.Handle(ctx, c)
		})},
		{commands.ImportCatalogCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.ImportCatalogCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return importHandler.Handle(ctx, c)
		})},
		{commands.AddAliasCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.AddAliasCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return addAliasHandler.Handle(ctx, c)
		})},
		{commands.RemoveAliasCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.RemoveAliasCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return nil, removeAliasHandler.Handle(ctx, c)
		})},
		{commands.CheckConsistencyCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			c, ok := cmd.(commands.CheckConsistencyCommand)
			if !ok {
				return nil, fmt.Errorf("unexpected command type %T", cmd)
			}
			return consistencyHandler.Handle(ctx, c)
		})},
	}

	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// queryCacheTTL is the backstop expiry in seconds for cached query results;
// mutations clear the cache through the event bus well before it runs out.
const queryCacheTTL = 60

// ProvideQueryBus creates a query bus with every read handler registered.
// Tree-shaped reads are cached; existence and blocking-count checks are
// answered fresh so a stale cache can never approve a delete.
func ProvideQueryBus(
	p *Persistence,
	aliasService *appservices.AliasService,
	hierarchy *domainservices.HierarchyService,
	domainCfg *domaincfg.DomainConfig,
	cache ports.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	caching := querybus.NewCachingMiddleware(cache, queryCacheTTL)
	metered := querybus.NewMetricsMiddleware(metrics)

	getIngredientHandler := queries_handlers.NewGetIngredientHandler(p.Ingredients, p.Aliases, domainCfg, logger)
	getTreeHandler := queries_handlers.NewGetTreeHandler(p.Ingredients, domainCfg, logger)
	searchHandler := queries_handlers.NewSearchIngredientsHandler(p.Ingredients, hierarchy, domainCfg, logger)
	resolveHandler := queries_handlers.NewResolveLabelHandler(aliasService, p.Ingredients, domainCfg, logger)
	canDeleteHandler := queries_handlers.NewCanDeleteHandler(p.Ingredients, p.SnapshotLines, p.Usage, logger)
	validateLevelHandler := queries_handlers.NewValidateLevelHandler(p.Ingredients, hierarchy, domainCfg, logger)
	listChildrenHandler := queries_handlers.NewListChildrenHandler(p.Ingredients, hierarchy, domainCfg, logger)
	listAncestorsHandler := queries_handlers.NewListAncestorsHandler(p.Ingredients, hierarchy, domainCfg, logger)
	listDescendantsHandler := queries_handlers.NewListDescendantsHandler(p.Ingredients, hierarchy, domainCfg, logger)
	listRootsHandler := queries_handlers.NewListRootsHandler(p.Ingredients, domainCfg, logger)

	registrations := []struct {
		query     querybus.Query
		handler   querybus.QueryHandler
		cacheable bool
	}{
		{queries.GetIngredientQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetIngredientQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return getIngredientHandler.Handle(ctx, q)
		}), false},
		{queries.GetTreeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetTreeQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return getTreeHandler.Handle(ctx, q)
		}), true},
		{queries.SearchIngredientsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.SearchIngredientsQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return searchHandler.Handle(ctx, q)
		}), true},
		{queries.ResolveLabelQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ResolveLabelQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return resolveHandler.Handle(ctx, q)
		}), false},
		{queries.CanDeleteQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.CanDeleteQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return canDeleteHandler.Handle(ctx, q)
		}), false},
		{queries.ValidateLevelQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ValidateLevelQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return validateLevelHandler.Handle(ctx, q)
		}), false},
		{queries.ListChildrenQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListChildrenQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return listChildrenHandler.Handle(ctx, q)
		}), true},
		{queries.ListAncestorsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListAncestorsQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return listAncestorsHandler.Handle(ctx, q)
		}), true},
		{queries.ListDescendantsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListDescendantsQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return listDescendantsHandler.Handle(ctx, q)
		}), true},
		{queries.ListRootsQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListRootsQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return listRootsHandler.Handle(ctx, q)
		}), true},
	}

	for _, r := range registrations {
		handler := r.handler
		if r.cacheable {
			handler = caching.Wrap(handler)
		}
		handler = metered.Wrap(handler)

		if err := queryBus.Register(r.query, handler); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideInMemoryCache creates the query result cache
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}
