package dynamodb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// SignalLog appends audit entries to the single table. All entries share
// the GSI1 partition "SIGNALS" with the occurrence timestamp as sort key,
// so ListRecent is one descending query.
type SignalLog struct {
	client *dynamodb.Client
	tables Tables
	logger *zap.Logger
}

// NewSignalLog creates a DynamoDB-backed signal log.
func NewSignalLog(client *dynamodb.Client, tables Tables, logger *zap.Logger) *SignalLog {
	return &SignalLog{client: client, tables: tables, logger: logger}
}

var _ ports.SignalLog = (*SignalLog)(nil)

type signalItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	GSI1PK     string  `dynamodbav:"GSI1PK"`
	GSI1SK     string  `dynamodbav:"GSI1SK"`
	EntityType string  `dynamodbav:"EntityType"`
	SignalID   string  `dynamodbav:"SignalID"`
	SourceID   string  `dynamodbav:"SourceID"`
	TargetID   string  `dynamodbav:"TargetID"`
	SignalType string  `dynamodbav:"SignalType"`
	Weight     float64 `dynamodbav:"Weight"`
	Context    string  `dynamodbav:"Context,omitempty"`
	UserID     string  `dynamodbav:"UserID,omitempty"`
	OccurredAt string  `dynamodbav:"OccurredAt"`
}

// Append writes one signal. The ID in the key makes appends idempotent per
// signal; existing entries are never touched.
func (l *SignalLog) Append(ctx context.Context, event *relationship.SignalEvent) error {
	occurredAt := event.OccurredAt.UTC().Format(time.RFC3339Nano)

	item := signalItem{
		PK:         "SIGNAL#" + event.ID,
		SK:         "SIGNAL",
		GSI1PK:     "SIGNALS",
		GSI1SK:     occurredAt + "#" + event.ID,
		EntityType: "SIGNAL",
		SignalID:   event.ID,
		SourceID:   event.SourceID,
		TargetID:   event.TargetID,
		SignalType: string(event.Type),
		Weight:     event.Weight,
		UserID:     event.UserID,
		OccurredAt: occurredAt,
	}
	if len(event.Context) > 0 {
		raw, err := json.Marshal(event.Context)
		if err != nil {
			return apperrors.NewInternalError("marshal signal context", err)
		}
		item.Context = string(raw)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperrors.NewInternalError("marshal signal", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tables.TableName),
		Item:      av,
	})
	if err != nil {
		return apperrors.NewStorageError("append signal", err)
	}
	return nil
}

// ListRecent returns up to limit signals, newest first.
func (l *SignalLog) ListRecent(ctx context.Context, limit int) ([]*relationship.SignalEvent, error) {
	if limit <= 0 {
		return []*relationship.SignalEvent{}, nil
	}

	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tables.TableName),
		IndexName:              aws.String(l.tables.GSI1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "SIGNALS"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list signals", err)
	}

	events := make([]*relationship.SignalEvent, 0, len(result.Items))
	for _, raw := range result.Items {
		var item signalItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			l.logger.Warn("skipping unreadable signal item", zap.Error(err))
			continue
		}
		event, err := item.toEvent()
		if err != nil {
			l.logger.Warn("skipping malformed signal item", zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (i signalItem) toEvent() (*relationship.SignalEvent, error) {
	occurredAt, err := time.Parse(time.RFC3339Nano, i.OccurredAt)
	if err != nil {
		return nil, err
	}
	event := &relationship.SignalEvent{
		ID:         i.SignalID,
		SourceID:   i.SourceID,
		TargetID:   i.TargetID,
		Type:       relationship.SignalType(i.SignalType),
		Weight:     i.Weight,
		UserID:     i.UserID,
		OccurredAt: occurredAt,
	}
	if i.Context != "" {
		if err := json.Unmarshal([]byte(i.Context), &event.Context); err != nil {
			return nil, err
		}
	}
	return event, nil
}
