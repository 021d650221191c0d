package dynamodb

import (
	"context"
	"fmt"
	"time"

	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// detachedPartition collects lines whose catalog reference was severed by a
// deletion. They drop out of per-ingredient queries the moment the
// denormalizing write commits.
const detachedPartition = "INGREDIENT#DETACHED"

// snapshotLineItem is the DynamoDB representation of an inventory snapshot
// line. GSI1 partitions by referenced ingredient, GSI2 by owning snapshot.
type snapshotLineItem struct {
	PK                     string  `dynamodbav:"PK"` // SNAPLINE#<id>
	SK                     string  `dynamodbav:"SK"` // METADATA
	EntityType             string  `dynamodbav:"EntityType"`
	LineID                 string  `dynamodbav:"LineID"`
	SnapshotID             string  `dynamodbav:"SnapshotID"`
	IngredientID           string  `dynamodbav:"IngredientID,omitempty"`
	Quantity               float64 `dynamodbav:"Quantity"`
	Unit                   string  `dynamodbav:"Unit,omitempty"`
	RecordedAt             string  `dynamodbav:"RecordedAt"`
	IngredientNameSnapshot string  `dynamodbav:"IngredientNameSnapshot,omitempty"`
	ParentL1NameSnapshot   string  `dynamodbav:"ParentL1NameSnapshot,omitempty"`
	ParentL0NameSnapshot   string  `dynamodbav:"ParentL0NameSnapshot,omitempty"`
	GSI1PK                 string  `dynamodbav:"GSI1PK"` // INGREDIENT#<id> or INGREDIENT#DETACHED
	GSI1SK                 string  `dynamodbav:"GSI1SK"` // SNAPLINE#<id>
	GSI2PK                 string  `dynamodbav:"GSI2PK"` // SNAPSHOT#<snapshot_id>
	GSI2SK                 string  `dynamodbav:"GSI2SK"` // SNAPLINE#<id>
}

// SnapshotLineRepository implements ports.SnapshotLineRepository using DynamoDB
type SnapshotLineRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSnapshotLineRepository creates a new DynamoDB snapshot line repository
func NewSnapshotLineRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *SnapshotLineRepository {
	return &SnapshotLineRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists a snapshot line, attached or detached
func (r *SnapshotLineRepository) Save(ctx context.Context, line *entities.SnapshotLine) error {
	item, err := attributevalue.MarshalMap(snapshotLineToItem(line))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot line: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot line: %w", err)
	}

	return nil
}

// PrepareSaveItem builds the transactional write for a snapshot line
func (r *SnapshotLineRepository) PrepareSaveItem(line *entities.SnapshotLine) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(snapshotLineToItem(line))
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal snapshot line: %w", err)
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		},
	}, nil
}

// GetByID retrieves one snapshot line
func (r *SnapshotLineRepository) GetByID(ctx context.Context, id string) (*entities.SnapshotLine, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: snapshotLinePK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot line: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("snapshot line %s", id))
	}

	var item snapshotLineItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot line: %w", err)
	}

	return itemToSnapshotLine(item)
}

// GetByIngredientID finds every line still referencing the ingredient.
// Detached lines live in their own partition and never show up here.
func (r *SnapshotLineRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.SnapshotLine, error) {
	return r.queryLines(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ingredientPK(ingredientID.String())},
			":prefix": &types.AttributeValueMemberS{Value: "SNAPLINE#"},
		},
	})
}

// GetBySnapshotID retrieves all lines of one snapshot document
func (r *SnapshotLineRepository) GetBySnapshotID(ctx context.Context, snapshotID string) ([]*entities.SnapshotLine, error) {
	return r.queryLines(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: snapshotPartitionKey(snapshotID)},
		},
	})
}

// CountByIngredientID returns the number of lines still referencing the ingredient
func (r *SnapshotLineRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ingredientPK(ingredientID.String())},
			":prefix": &types.AttributeValueMemberS{Value: "SNAPLINE#"},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshot lines: %w", err)
	}

	return int(result.Count), nil
}

func (r *SnapshotLineRepository) queryLines(ctx context.Context, input *dynamodb.QueryInput) ([]*entities.SnapshotLine, error) {
	var lines []*entities.SnapshotLine

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query snapshot lines: %w", err)
		}

		for _, raw := range result.Items {
			var item snapshotLineItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal snapshot line: %w", err)
			}

			line, err := itemToSnapshotLine(item)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return lines, nil
}

func snapshotLinePK(id string) string {
	return fmt.Sprintf("SNAPLINE#%s", id)
}

func snapshotPartitionKey(snapshotID string) string {
	return fmt.Sprintf("SNAPSHOT#%s", snapshotID)
}

func snapshotLineToItem(line *entities.SnapshotLine) snapshotLineItem {
	ingredientKey := detachedPartition
	ingredientID := ""
	if ref := line.IngredientID(); ref != nil {
		ingredientID = ref.String()
		ingredientKey = ingredientPK(ingredientID)
	}

	return snapshotLineItem{
		PK:                     snapshotLinePK(line.ID()),
		SK:                     metadataSK,
		EntityType:             "SNAPSHOT_LINE",
		LineID:                 line.ID(),
		SnapshotID:             line.SnapshotID(),
		IngredientID:           ingredientID,
		Quantity:               line.Quantity(),
		Unit:                   line.Unit(),
		RecordedAt:             line.RecordedAt().Format(time.RFC3339Nano),
		IngredientNameSnapshot: line.IngredientNameSnapshot(),
		ParentL1NameSnapshot:   line.ParentL1NameSnapshot(),
		ParentL0NameSnapshot:   line.ParentL0NameSnapshot(),
		GSI1PK:                 ingredientKey,
		GSI1SK:                 snapshotLinePK(line.ID()),
		GSI2PK:                 snapshotPartitionKey(line.SnapshotID()),
		GSI2SK:                 snapshotLinePK(line.ID()),
	}
}

func itemToSnapshotLine(item snapshotLineItem) (*entities.SnapshotLine, error) {
	var ingredientID *valueobjects.IngredientID
	if item.IngredientID != "" {
		id, err := valueobjects.NewIngredientIDFromString(item.IngredientID)
		if err != nil {
			return nil, fmt.Errorf("invalid ingredient ID on snapshot line %s: %w", item.LineID, err)
		}
		ingredientID = &id
	}

	recordedAt, err := time.Parse(time.RFC3339Nano, item.RecordedAt)
	if err != nil {
		recordedAt = time.Now()
	}

	return entities.ReconstructSnapshotLine(
		item.LineID,
		item.SnapshotID,
		ingredientID,
		item.Quantity,
		item.Unit,
		recordedAt,
		item.IngredientNameSnapshot,
		item.ParentL1NameSnapshot,
		item.ParentL0NameSnapshot,
	)
}
