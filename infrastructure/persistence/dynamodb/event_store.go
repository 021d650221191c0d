package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// EventStore implements the EventStore port using DynamoDB with an outbox:
// events land in the table inside the same transaction as the state change
// and a relay publishes them to the bus afterwards.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

// PublishStatus represents the publishing status of a stored event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"   // Saved but not yet published
	PublishStatusPublished PublishStatus = "published" // Successfully published
	PublishStatusFailed    PublishStatus = "failed"    // Gave up after max attempts
)

// maxPublishAttempts is how many times the relay retries before an event is
// marked permanently failed.
const maxPublishAttempts = 3

// EventRecord is how events are stored in DynamoDB
type EventRecord struct {
	PK            string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK            string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID       string                 `dynamodbav:"EventID"`
	EventType     string                 `dynamodbav:"EventType"`
	AggregateID   string                 `dynamodbav:"AggregateID"`
	AggregateType string                 `dynamodbav:"AggregateType"`
	EventData     map[string]interface{} `dynamodbav:"EventData"`
	Timestamp     string                 `dynamodbav:"Timestamp"`
	Version       int                    `dynamodbav:"Version"`
	Source        string                 `dynamodbav:"Source"`

	// Outbox fields
	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	// GSI attributes: GSI1 is the service-wide audit trail ordered by time,
	// GSI2 partitions by event type.
	GSI1PK string `dynamodbav:"GSI1PK"` // SOURCE#pantry.catalog
	GSI1SK string `dynamodbav:"GSI1SK"` // EVENT#<timestamp>
	GSI2PK string `dynamodbav:"GSI2PK"` // EVENTTYPE#<type>
	GSI2SK string `dynamodbav:"GSI2SK"` // EVENT#<timestamp>

	// TTL for automatic cleanup
	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client *dynamodb.Client, tableName string) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveEvents persists domain events to the event store
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))

	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	// DynamoDB caps batch writes at 25 items
	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := es.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to write %d events", len(result.UnprocessedItems[es.tableName]))
		}
	}

	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTS#%s", aggregateID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var allEvents []events.DomainEvent

	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}

			event, err := es.recordToEvent(record)
			if err != nil {
				return nil, fmt.Errorf("failed to convert record to event: %w", err)
			}
			allEvents = append(allEvents, event)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return allEvents, nil
}

// GetEventsByType retrieves events of a specific type, most recent first
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTTYPE#%s", eventType)},
		},
		ScanIndexForward: aws.Bool(false),
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}

	return es.itemsToEvents(result.Items)
}

// GetEventsSince retrieves the service-wide audit trail after a point in
// time, oldest first.
func (es *EventStore) GetEventsSince(ctx context.Context, since time.Time, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK > :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("SOURCE#%s", events.SourcePantry)},
			":sk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENT#%s", since.Format(time.RFC3339Nano))},
		},
		ScanIndexForward: aws.Bool(true),
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query events since %s: %w", since.Format(time.RFC3339), err)
	}

	return es.itemsToEvents(result.Items)
}

func (es *EventStore) itemsToEvents(items []map[string]types.AttributeValue) ([]events.DomainEvent, error) {
	domainEvents := make([]events.DomainEvent, 0, len(items))
	for _, item := range items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}

		event, err := es.recordToEvent(record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record to event: %w", err)
		}
		domainEvents = append(domainEvents, event)
	}

	return domainEvents, nil
}

// PrepareEventItem prepares an event for transactional write. The unit of
// work uses this to commit events atomically with the state they describe.
func (es *EventStore) PrepareEventItem(event events.DomainEvent) (types.TransactWriteItem, error) {
	record, err := es.eventToRecord(event)
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(es.tableName),
			Item:      item,
		},
	}, nil
}

// eventToRecord converts a domain event to a DynamoDB record
func (es *EventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventData := make(map[string]interface{})

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp()
	eventID := uuid.New().String()

	// Events expire from the store after a year; the bus delivered them
	// long before that.
	ttl := timestamp.Add(365 * 24 * time.Hour).Unix()

	aggregateType := "catalog"
	if strings.HasPrefix(event.GetEventType(), "ingredient.") {
		aggregateType = "ingredient"
	}

	return &EventRecord{
		PK:            fmt.Sprintf("EVENTS#%s", event.GetAggregateID()),
		SK:            fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID),
		EventID:       eventID,
		EventType:     event.GetEventType(),
		AggregateID:   event.GetAggregateID(),
		AggregateType: aggregateType,
		EventData:     eventData,
		Timestamp:     timestamp.Format(time.RFC3339Nano),
		Version:       event.GetVersion(),
		Source:        events.SourcePantry,

		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		GSI1PK: fmt.Sprintf("SOURCE#%s", events.SourcePantry),
		GSI1SK: fmt.Sprintf("EVENT#%s", timestamp.Format(time.RFC3339Nano)),
		GSI2PK: fmt.Sprintf("EVENTTYPE#%s", event.GetEventType()),
		GSI2SK: fmt.Sprintf("EVENT#%s", timestamp.Format(time.RFC3339Nano)),
		TTL:    ttl,
	}, nil
}

// recordToEvent converts a DynamoDB record back to a domain event
func (es *EventStore) recordToEvent(record EventRecord) (events.DomainEvent, error) {
	timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
	if err != nil {
		timestamp, err = time.Parse(time.RFC3339, record.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
	}

	data := record.EventData

	switch record.EventType {
	case "ingredient.created":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewIngredientCreated(
			id,
			stringField(data, "display_name"),
			stringField(data, "slug"),
			stringField(data, "parent_id"),
			intField(data, "level"),
			timestamp,
		), nil

	case "ingredient.renamed":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewIngredientRenamed(
			id,
			stringField(data, "old_name"),
			stringField(data, "new_name"),
			timestamp,
		), nil

	case "ingredient.moved":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewIngredientMoved(
			id,
			stringField(data, "old_parent_id"),
			stringField(data, "new_parent_id"),
			intField(data, "old_level"),
			intField(data, "new_level"),
			stringSliceField(data, "releveled_ids"),
			timestamp,
		), nil

	case "ingredient.deleted":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewIngredientDeleted(
			id,
			stringField(data, "display_name"),
			stringField(data, "slug"),
			stringField(data, "parent_name"),
			stringField(data, "root_name"),
			intField(data, "snapshot_count"),
			intField(data, "alias_count"),
			timestamp,
		), nil

	case "ingredient.alias_added":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewAliasAdded(
			stringField(data, "alias_id"),
			id,
			stringField(data, "name"),
			stringField(data, "scheme"),
			timestamp,
		), nil

	case "ingredient.alias_removed":
		id, err := ingredientIDFromData(data)
		if err != nil {
			return nil, err
		}
		return events.NewAliasRemoved(stringField(data, "alias_id"), id, timestamp), nil

	case "catalog.imported":
		return events.NewCatalogImported(
			stringField(data, "batch_id"),
			intField(data, "record_count"),
			stringField(data, "catalog_checksum"),
			timestamp,
		), nil

	default:
		// Unknown types still round-trip as their base envelope
		return events.BaseEvent{
			AggregateID: record.AggregateID,
			EventType:   record.EventType,
			Timestamp:   timestamp,
			Version:     record.Version,
		}, nil
	}
}

func ingredientIDFromData(data map[string]interface{}) (valueobjects.IngredientID, error) {
	raw := stringField(data, "ingredient_id")
	id, err := valueobjects.NewIngredientIDFromString(raw)
	if err != nil {
		return valueobjects.IngredientID{}, fmt.Errorf("invalid ingredient ID in event data: %w", err)
	}
	return id, nil
}

func stringField(data map[string]interface{}, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}

// intField tolerates the float64 that JSON round-tripping produces
func intField(data map[string]interface{}, key string) int {
	switch value := data[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	default:
		return 0
	}
}

func stringSliceField(data map[string]interface{}, key string) []string {
	raw, ok := data[key].([]interface{})
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Outbox methods used by the relay

// GetPendingEvents retrieves events that haven't been published yet
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(es.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(PublishStatusPending)},
			":prefix": &types.AttributeValueMemberS{Value: "EVENTS#"},
		},
		Limit: aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending events: %w", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue // Skip malformed records
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkEventAsPublished marks an event as successfully published
func (es *EventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	now := time.Now().Format(time.RFC3339)

	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}

	return nil
}

// MarkEventAsFailed records a failed publish attempt. The event stays
// pending until the attempt count reaches the cap, then goes to failed.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK string, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	status := string(PublishStatusFailed)
	if attempts < maxPublishAttempts {
		status = string(PublishStatusPending)
	}

	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}

	return nil
}
