package dynamodb

import (
	"context"
	"fmt"
	"time"

	"pantry-backend/application/ports"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Key layout for catalog items in the single-table design:
//
//	PK = INGREDIENT#<id>      SK = METADATA
//	GSI1PK = PARENT#<id>      GSI1SK = INGREDIENT#<id>   (children lookups)
//	GSI2PK = CATALOG          GSI2SK = SLUG#<slug>       (slug lookups, full catalog)
//
// Parentless nodes partition GSI1 by placement: PARENT#ROOT for top-level
// categories, PARENT#ORPHAN for pre-migration leaves that never got a parent.
const (
	ingredientEntityType = "INGREDIENT"
	metadataSK           = "METADATA"
	catalogPartition     = "CATALOG"
	rootParentKey        = "PARENT#ROOT"
	orphanParentKey      = "PARENT#ORPHAN"

	gsi1Name = "GSI1"
	gsi2Name = "GSI2"
)

// ingredientItem is the DynamoDB representation of a catalog ingredient
type ingredientItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	IngredientID string `dynamodbav:"IngredientID"`
	DisplayName  string `dynamodbav:"DisplayName"`
	Slug         string `dynamodbav:"Slug"`
	ParentID     string `dynamodbav:"ParentID,omitempty"`
	Level        int    `dynamodbav:"Level"`
	Category     string `dynamodbav:"Category,omitempty"`
	Version      int    `dynamodbav:"Version"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	GSI2PK       string `dynamodbav:"GSI2PK"`
	GSI2SK       string `dynamodbav:"GSI2SK"`
}

// IngredientRepository implements ports.IngredientRepository using DynamoDB
type IngredientRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewIngredientRepository creates a new DynamoDB ingredient repository
func NewIngredientRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *IngredientRepository {
	return &IngredientRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists an ingredient with a plain put
func (r *IngredientRepository) Save(ctx context.Context, ingredient *entities.Ingredient) error {
	item, err := attributevalue.MarshalMap(ingredientToItem(ingredient))
	if err != nil {
		return fmt.Errorf("failed to marshal ingredient: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save ingredient: %w", err)
	}

	r.logger.Debug("Ingredient saved",
		zap.String("ingredientID", ingredient.ID().String()),
		zap.String("slug", ingredient.Name().Slug()),
	)

	return nil
}

// PrepareSaveItem builds the transactional write for an ingredient so the
// unit of work can commit it atomically with the rest of the batch.
func (r *IngredientRepository) PrepareSaveItem(ingredient *entities.Ingredient) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(ingredientToItem(ingredient))
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal ingredient: %w", err)
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(r.tableName),
			Item:      item,
		},
	}, nil
}

// PrepareDeleteItem builds the transactional delete for an ingredient
func (r *IngredientRepository) PrepareDeleteItem(id valueobjects.IngredientID) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: ingredientPK(id.String())},
				"SK": &types.AttributeValueMemberS{Value: metadataSK},
			},
		},
	}
}

// GetByID retrieves an ingredient by its identifier
func (r *IngredientRepository) GetByID(ctx context.Context, id valueobjects.IngredientID) (*entities.Ingredient, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: ingredientPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewIngredientNotFound(id.String())
	}

	var item ingredientItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredient: %w", err)
	}

	return itemToIngredient(item)
}

// GetBySlug retrieves an ingredient by its immutable slug
func (r *IngredientRepository) GetBySlug(ctx context.Context, slug string) (*entities.Ingredient, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND GSI2SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: catalogPartition},
			":sk": &types.AttributeValueMemberS{Value: slugSK(slug)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient by slug: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewIngredientNotFound(slug)
	}

	var item ingredientItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredient: %w", err)
	}

	return itemToIngredient(item)
}

// GetAll retrieves the whole catalog, paginating through the catalog
// partition. The catalog is bounded at three levels, so loading it in full
// for taxonomy construction is the expected access pattern.
func (r *IngredientRepository) GetAll(ctx context.Context) ([]*entities.Ingredient, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: catalogPartition},
		},
	}

	var ingredients []*entities.Ingredient

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query catalog: %w", err)
		}

		for _, raw := range result.Items {
			var item ingredientItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ingredient: %w", err)
			}

			ingredient, err := itemToIngredient(item)
			if err != nil {
				return nil, err
			}
			ingredients = append(ingredients, ingredient)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return ingredients, nil
}

// GetByParentID retrieves the direct children of an ingredient
func (r *IngredientRepository) GetByParentID(ctx context.Context, parentID valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	return r.queryByParentKey(ctx, fmt.Sprintf("PARENT#%s", parentID.String()))
}

// GetRoots retrieves all top-level categories. The parentless partition also
// holds legacy orphan leaves, which are filtered out here.
func (r *IngredientRepository) GetRoots(ctx context.Context) ([]*entities.Ingredient, error) {
	parentless, err := r.queryByParentKey(ctx, rootParentKey)
	if err != nil {
		return nil, err
	}
	roots := make([]*entities.Ingredient, 0, len(parentless))
	for _, ing := range parentless {
		if ing.IsRoot() {
			roots = append(roots, ing)
		}
	}
	return roots, nil
}

func (r *IngredientRepository) queryByParentKey(ctx context.Context, parentKey string) ([]*entities.Ingredient, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: parentKey},
		},
	}

	var ingredients []*entities.Ingredient

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query ingredients by parent: %w", err)
		}

		for _, raw := range result.Items {
			var item ingredientItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ingredient: %w", err)
			}

			ingredient, err := itemToIngredient(item)
			if err != nil {
				return nil, err
			}
			ingredients = append(ingredients, ingredient)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return ingredients, nil
}

// Delete removes an ingredient item. Integrity checks happen in the
// application layer before this is called.
func (r *IngredientRepository) Delete(ctx context.Context, id valueobjects.IngredientID) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: ingredientPK(id.String())},
			"SK": &types.AttributeValueMemberS{Value: metadataSK},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}

	r.logger.Debug("Ingredient deleted", zap.String("ingredientID", id.String()))

	return nil
}

// BulkSave persists a batch of ingredients. DynamoDB caps batch writes at
// 25 items, so larger batches are chunked.
func (r *IngredientRepository) BulkSave(ctx context.Context, ingredients []*entities.Ingredient) error {
	if len(ingredients) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(ingredients))
	for _, ingredient := range ingredients {
		item, err := attributevalue.MarshalMap(ingredientToItem(ingredient))
		if err != nil {
			return fmt.Errorf("failed to marshal ingredient %s: %w", ingredient.ID().String(), err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
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
			return fmt.Errorf("failed to bulk save ingredients: %w", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return fmt.Errorf("failed to save %d ingredients", len(result.UnprocessedItems[r.tableName]))
		}
	}

	r.logger.Debug("Ingredients bulk saved", zap.Int("count", len(ingredients)))

	return nil
}

func ingredientPK(id string) string {
	return fmt.Sprintf("INGREDIENT#%s", id)
}

func slugSK(slug string) string {
	return fmt.Sprintf("SLUG#%s", slug)
}

func ingredientToItem(ingredient *entities.Ingredient) ingredientItem {
	parentKey := rootParentKey
	parentID := ""
	if pid := ingredient.ParentID(); pid != nil {
		parentID = pid.String()
		parentKey = fmt.Sprintf("PARENT#%s", parentID)
	} else if !ingredient.Level().IsRoot() {
		parentKey = orphanParentKey
	}

	return ingredientItem{
		PK:           ingredientPK(ingredient.ID().String()),
		SK:           metadataSK,
		EntityType:   ingredientEntityType,
		IngredientID: ingredient.ID().String(),
		DisplayName:  ingredient.Name().Display(),
		Slug:         ingredient.Name().Slug(),
		ParentID:     parentID,
		Level:        ingredient.Level().Int(),
		Category:     ingredient.Category(),
		Version:      ingredient.Version(),
		CreatedAt:    ingredient.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:    ingredient.UpdatedAt().Format(time.RFC3339Nano),
		GSI1PK:       parentKey,
		GSI1SK:       ingredientPK(ingredient.ID().String()),
		GSI2PK:       catalogPartition,
		GSI2SK:       slugSK(ingredient.Name().Slug()),
	}
}

func itemToIngredient(item ingredientItem) (*entities.Ingredient, error) {
	id, err := valueobjects.NewIngredientIDFromString(item.IngredientID)
	if err != nil {
		return nil, fmt.Errorf("invalid ingredient ID %q: %w", item.IngredientID, err)
	}

	name, err := valueobjects.NewIngredientName(item.DisplayName, item.Slug)
	if err != nil {
		return nil, fmt.Errorf("invalid ingredient name for %s: %w", item.IngredientID, err)
	}

	level, err := valueobjects.NewLevel(item.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid level for %s: %w", item.IngredientID, err)
	}

	var parentID *valueobjects.IngredientID
	if item.ParentID != "" {
		pid, err := valueobjects.NewIngredientIDFromString(item.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent ID for %s: %w", item.IngredientID, err)
		}
		parentID = &pid
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		createdAt = time.Now()
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		updatedAt = createdAt
	}

	return entities.ReconstructIngredient(id, name, parentID, level, item.Category, createdAt, updatedAt, item.Version)
}

var _ ports.IngredientRepository = (*IngredientRepository)(nil)
