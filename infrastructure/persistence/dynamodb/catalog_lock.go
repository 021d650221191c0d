package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// catalogLockPK is the single lock record guarding catalog mutations. The
// catalog is one bounded tree, so one lock serializes every structural write.
const catalogLockPK = "LOCK#CATALOG"

// errLockHeld signals contention, the only failure worth retrying
var errLockHeld = errors.New("catalog lock already held")

// lockRecord represents the lock item in DynamoDB
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	HeldBy     string `dynamodbav:"HeldBy"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// CatalogLock implements ports.CatalogLock using DynamoDB conditional writes.
// Expiry doubles as crash recovery: a writer that dies holding the lock is
// overtaken once ExpiresAt passes, and the TTL attribute eventually removes
// the stale item entirely.
type CatalogLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCatalogLock creates a new DynamoDB-backed catalog lock
func NewCatalogLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *CatalogLock {
	return &CatalogLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Acquire blocks up to lockTimeout trying to take the catalog lock, holding
// it for at most lockDuration. Retries back off exponentially under
// contention.
func (cl *CatalogLock) Acquire(ctx context.Context, owner string, lockDuration, lockTimeout time.Duration) error {
	deadline := time.Now().Add(lockTimeout)
	retryInterval := 100 * time.Millisecond

	for {
		err := cl.tryAcquire(ctx, owner, lockDuration)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errLockHeld) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout acquiring catalog lock for %s", owner)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (cl *CatalogLock) tryAcquire(ctx context.Context, owner string, lockDuration time.Duration) error {
	now := time.Now()
	expiresAt := now.Add(lockDuration)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: catalogLockPK},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"HeldBy":     &types.AttributeValueMemberS{Value: owner},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := cl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(cl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			cl.logger.Debug("Catalog lock contention", zap.String("owner", owner))
			return errLockHeld
		}
		return fmt.Errorf("failed to acquire catalog lock: %w", err)
	}

	cl.logger.Debug("Catalog lock acquired",
		zap.String("owner", owner),
		zap.Duration("duration", lockDuration),
	)

	return nil
}

// Release frees the lock if still held by the owner. A lock that expired
// and was taken over by someone else is left alone.
func (cl *CatalogLock) Release(ctx context.Context, owner string) error {
	_, err := cl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(cl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: catalogLockPK},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("HeldBy = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			cl.logger.Warn("Catalog lock already released or taken over",
				zap.String("owner", owner),
			)
			return nil
		}
		return fmt.Errorf("failed to release catalog lock: %w", err)
	}

	cl.logger.Debug("Catalog lock released", zap.String("owner", owner))

	return nil
}
