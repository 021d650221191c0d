package dynamodb

import (
	"context"
	"fmt"

	"pantry-backend/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Reference items are written by the product and recipe services into the
// ingredient's partition:
//
//	PK = INGREDIENT#<id>   SK = PRODUCTREF#<product_id>
//	PK = INGREDIENT#<id>   SK = RECIPEREF#<recipe_id>
//
// This reader only counts them. Deleting an ingredient is refused while any
// such reference exists, so the counts must come straight from the table
// rather than a cache.
const (
	productRefPrefix = "PRODUCTREF#"
	recipeRefPrefix  = "RECIPEREF#"
)

// UsageReader implements ports.UsageReader using DynamoDB
type UsageReader struct {
	client    *dynamodb.Client
	tableName string
}

// NewUsageReader creates a new DynamoDB usage reader
func NewUsageReader(client *dynamodb.Client, tableName string) *UsageReader {
	return &UsageReader{
		client:    client,
		tableName: tableName,
	}
}

// CountProductReferences returns how many purchasable products link the ingredient
func (r *UsageReader) CountProductReferences(ctx context.Context, id valueobjects.IngredientID) (int, error) {
	return r.countReferences(ctx, id, productRefPrefix)
}

// CountRecipeReferences returns how many recipes use the ingredient
func (r *UsageReader) CountRecipeReferences(ctx context.Context, id valueobjects.IngredientID) (int, error) {
	return r.countReferences(ctx, id, recipeRefPrefix)
}

func (r *UsageReader) countReferences(ctx context.Context, id valueobjects.IngredientID, prefix string) (int, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: ingredientPK(id.String())},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count references: %w", err)
	}

	return int(result.Count), nil
}
