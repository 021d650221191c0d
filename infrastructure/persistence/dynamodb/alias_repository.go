package dynamodb

import (
	"context"
	"fmt"
	"strings"
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

// aliasItem is the DynamoDB representation of an alias or crosswalk record.
// GSI1 partitions by owning ingredient, GSI2 by lowercased name so label
// resolution stays case-insensitive without scanning.
type aliasItem struct {
	PK           string `dynamodbav:"PK"` // ALIAS#<id>
	SK           string `dynamodbav:"SK"` // METADATA
	EntityType   string `dynamodbav:"EntityType"`
	AliasID      string `dynamodbav:"AliasID"`
	IngredientID string `dynamodbav:"IngredientID"`
	Name         string `dynamodbav:"Name"`
	Scheme       string `dynamodbav:"Scheme,omitempty"`
	Code         string `dynamodbav:"Code,omitempty"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	GSI1PK       string `dynamodbav:"GSI1PK"` // INGREDIENT#<ingredient_id>
	GSI1SK       string `dynamodbav:"GSI1SK"` // ALIAS#<id>
	GSI2PK       string `dynamodbav:"GSI2PK"` // ALIASNAME#<lowercased name>
	GSI2SK       string `dynamodbav:"GSI2SK"` // ALIAS#<id>
}

// AliasRepository implements ports.AliasRepository using DynamoDB
type AliasRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewAliasRepository creates a new DynamoDB alias repository
func NewAliasRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *AliasRepository {
	return &AliasRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists an alias
func (r *AliasRepository) Save(ctx context.Context, alias *entities.Alias) error {
	item, err := attributevalue.MarshalMap(aliasToItem(alias))
	if err != nil {
		return fmt.Errorf("failed to marshal alias: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save alias: %w", err)
	}

	r.logger.Debug("Alias saved",
		zap.String("aliasID", alias.ID()),
		zap.String("ingredientID", alias.IngredientID().String()),
	)

	return nil
}

// PrepareSaveItem builds the transactional write for an alias
func (r *AliasRepository) PrepareSaveItem(alias *entities.Alias) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(aliasToItem(alias))
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal alias: %w", err)
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		},
	}, nil
}

// PrepareDeleteItem builds the transactional delete for an alias
func (r *AliasRepository) PrepareDeleteItem(id string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: aliasPK(id)},
				"SK": &types.AttributeValueMemberS{Value: metadataSK},
			},
		},
	}
}

// GetByID retrieves an alias by its identifier
func (r *AliasRepository) GetByID(ctx context.Context, id string) (*entities.Alias, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: aliasPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewAliasNotFound(id)
	}

	var item aliasItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alias: %w", err)
	}

	return itemToAlias(item)
}

// GetByIngredientID retrieves all aliases owned by an ingredient
func (r *AliasRepository) GetByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) ([]*entities.Alias, error) {
	items, err := r.queryAliasItems(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ingredientPK(ingredientID.String())},
			":prefix": &types.AttributeValueMemberS{Value: "ALIAS#"},
		},
	})
	if err != nil {
		return nil, err
	}

	aliases := make([]*entities.Alias, 0, len(items))
	for _, item := range items {
		alias, err := itemToAlias(item)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	return aliases, nil
}

// FindByName retrieves aliases matching a name, case-insensitively
func (r *AliasRepository) FindByName(ctx context.Context, name string) ([]*entities.Alias, error) {
	items, err := r.queryAliasItems(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: aliasNameKey(name)},
		},
	})
	if err != nil {
		return nil, err
	}

	aliases := make([]*entities.Alias, 0, len(items))
	for _, item := range items {
		alias, err := itemToAlias(item)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	return aliases, nil
}

// Delete removes a single alias
func (r *AliasRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: aliasPK(id)},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete alias: %w", err)
	}

	return nil
}

// DeleteByIngredientID removes every alias owned by an ingredient
func (r *AliasRepository) DeleteByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) error {
	aliases, err := r.GetByIngredientID(ctx, ingredientID)
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(aliases))
	for _, alias := range aliases {
		writeRequests = append(writeRequests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: aliasPK(alias.ID())},
					"SK": &types.AttributeValueMemberS{Value: metadataSK},
				},
			},
		})
	}

	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		result, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: writeRequests[i:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete aliases: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to delete %d aliases", len(result.UnprocessedItems[r.tableName]))
		}
	}

	r.logger.Debug("Aliases deleted for ingredient",
		zap.String("ingredientID", ingredientID.String()),
		zap.Int("count", len(aliases)),
	)

	return nil
}

// CountByIngredientID returns the number of aliases owned by an ingredient
func (r *AliasRepository) CountByIngredientID(ctx context.Context, ingredientID valueobjects.IngredientID) (int, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ingredientPK(ingredientID.String())},
			":prefix": &types.AttributeValueMemberS{Value: "ALIAS#"},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count aliases: %w", err)
	}

	return int(result.Count), nil
}

func (r *AliasRepository) queryAliasItems(ctx context.Context, input *dynamodb.QueryInput) ([]aliasItem, error) {
	var items []aliasItem

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query aliases: %w", err)
		}

		for _, raw := range result.Items {
			var item aliasItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alias: %w", err)
			}
			items = append(items, item)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return items, nil
}

func aliasPK(id string) string {
	return fmt.Sprintf("ALIAS#%s", id)
}

func aliasNameKey(name string) string {
	return fmt.Sprintf("ALIASNAME#%s", strings.ToLower(strings.TrimSpace(name)))
}

func aliasToItem(alias *entities.Alias) aliasItem {
	return aliasItem{
		PK:           aliasPK(alias.ID()),
		SK:           metadataSK,
		EntityType:   "ALIAS",
		AliasID:      alias.ID(),
		IngredientID: alias.IngredientID().String(),
		Name:         alias.Name(),
		Scheme:       alias.Scheme(),
		Code:         alias.Code(),
		CreatedAt:    alias.CreatedAt().Format(time.RFC3339Nano),
		GSI1PK:       ingredientPK(alias.IngredientID().String()),
		GSI1SK:       aliasPK(alias.ID()),
		GSI2PK:       aliasNameKey(alias.Name()),
		GSI2SK:       aliasPK(alias.ID()),
	}
}

func itemToAlias(item aliasItem) (*entities.Alias, error) {
	ingredientID, err := valueobjects.NewIngredientIDFromString(item.IngredientID)
	if err != nil {
		return nil, fmt.Errorf("invalid ingredient ID on alias %s: %w", item.AliasID, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}

	return entities.ReconstructAlias(item.AliasID, ingredientID, item.Name, item.Scheme, item.Code, createdAt)
}
