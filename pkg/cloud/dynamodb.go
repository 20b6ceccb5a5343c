package cloud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prperemyshlev/platform-services/internal/ports"
)

// DynamoDBAPI is the subset of *dynamodb.Client used by SessionStore
type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// SessionStore is a DynamoDB table of sessions keyed by session_id with a
// numeric expires_at attribute in unix seconds
type SessionStore struct {
	client DynamoDBAPI
	table  string
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store over table
func NewSessionStore(client DynamoDBAPI, table string) *SessionStore {
	return &SessionStore{client: client, table: table}
}

// DeleteExpired scans at most limit items expiring before now and deletes
// them one by one. It stops at the first failed delete and reports how many
// were removed until then.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time, limit int32) (int, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", s.table, err)
	}

	deleted := 0
	for _, item := range out.Items {
		id, ok := item["session_id"]
		if !ok {
			continue
		}

		if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key:       map[string]types.AttributeValue{"session_id": id},
		}); err != nil {
			return deleted, fmt.Errorf("failed to delete session: %w", err)
		}
		deleted++
	}

	return deleted, nil
}
