package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DistributedRateLimiter counts requests in DynamoDB so limits hold across
// Lambda invocations and API instances. Each key gets one item per fixed
// window; expired windows are swept by the table TTL.
type DistributedRateLimiter struct {
	client    *dynamodb.Client
	tableName string
	limit     int
	window    time.Duration
	keyPrefix string
}

type rateLimitRecord struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Count     int    `dynamodbav:"Count"`
	WindowEnd string `dynamodbav:"WindowEnd"`
	TTL       int64  `dynamodbav:"TTL"`
}

// NewDistributedRateLimiter creates a limiter allowing limit requests per
// window for each key under the given prefix.
func NewDistributedRateLimiter(client *dynamodb.Client, tableName string, limit int, window time.Duration, keyPrefix string) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		tableName: tableName,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
	}
}

func (r *DistributedRateLimiter) recordKey(key string, windowStart time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("RATELIMIT#%s#%s", r.keyPrefix, key)},
		"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("WINDOW#%d", windowStart.Unix())},
	}
}

// Allow atomically increments the window counter, reporting false once the
// limit is reached. Infrastructure failures fail open so the API keeps
// serving while the table is unavailable.
func (r *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return true, nil
	}

	now := time.Now()
	windowStart := now.Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	update := expression.
		Add(expression.Name("Count"), expression.Value(1)).
		Set(expression.Name("WindowEnd"), expression.Value(windowEnd.Format(time.RFC3339))).
		Set(expression.Name("TTL"), expression.Value(windowEnd.Add(time.Hour).Unix()))
	condition := expression.Name("Count").AttributeNotExists().
		Or(expression.Name("Count").LessThan(expression.Value(r.limit)))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return true, fmt.Errorf("failed to build rate limit expression: %w", err)
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       r.recordKey(key, windowStart),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return false, nil
		}
		return true, fmt.Errorf("rate limiter unavailable (failing open): %w", err)
	}

	var record rateLimitRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &record); err != nil {
		return true, fmt.Errorf("failed to parse rate limit record (failing open): %w", err)
	}

	return record.Count <= r.limit, nil
}

// GetRemaining reports how many requests are left in the current window and
// how long until it resets.
func (r *DistributedRateLimiter) GetRemaining(ctx context.Context, key string) (int, time.Duration, error) {
	now := time.Now()
	windowStart := now.Truncate(r.window)
	resetIn := time.Until(windowStart.Add(r.window))

	if r.client == nil {
		return r.limit, resetIn, nil
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.recordKey(key, windowStart),
	})
	if err != nil {
		return r.limit, resetIn, fmt.Errorf("failed to read rate limit record: %w", err)
	}
	if result.Item == nil {
		return r.limit, resetIn, nil
	}

	var record rateLimitRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return r.limit, resetIn, fmt.Errorf("failed to parse rate limit record: %w", err)
	}

	remaining := r.limit - record.Count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, resetIn, nil
}

// Reset clears the current window for a key
func (r *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}

	windowStart := time.Now().Truncate(r.window)

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.recordKey(key, windowStart),
	})
	if err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}

	return nil
}

var _ RateLimiter = (*DistributedRateLimiter)(nil)
