package dynamodb

import (
	"context"
	"fmt"
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

// CoOccurrenceRepository stores tag co-occurrence counts. Increment uses an
// atomic ADD update, so it is safe across instances without the caller's
// lock, which only orders writes within one process.
type CoOccurrenceRepository struct {
	client *dynamodb.Client
	tables Tables
	logger *zap.Logger
}

// NewCoOccurrenceRepository creates a DynamoDB-backed co-occurrence repository.
func NewCoOccurrenceRepository(client *dynamodb.Client, tables Tables, logger *zap.Logger) *CoOccurrenceRepository {
	return &CoOccurrenceRepository{client: client, tables: tables, logger: logger}
}

var _ ports.CoOccurrenceRepository = (*CoOccurrenceRepository)(nil)

type coOccItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	EntityType string `dynamodbav:"EntityType"`
	First      string `dynamodbav:"First"`
	Second     string `dynamodbav:"Second"`
	PairCount  int64  `dynamodbav:"PairCount"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func coOccPK(pair relationship.CanonicalPair) string {
	return "COOC#" + pair.Key()
}

// Increment adds one to the pair's count, creating the row on first use.
// SET on the static attributes plus ADD on the counter keeps the whole
// update a single atomic call.
func (r *CoOccurrenceRepository) Increment(ctx context.Context, pair relationship.CanonicalPair, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tables.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: coOccPK(pair)},
			"SK": &types.AttributeValueMemberS{Value: "COOC"},
		},
		UpdateExpression: aws.String(
			"SET GSI1PK = :gsi1pk, GSI1SK = :sk1, GSI2PK = :gsi2pk, GSI2SK = :sk2, " +
				"EntityType = :entity, #first = :first, #second = :second, UpdatedAt = :now " +
				"ADD PairCount :one",
		),
		ExpressionAttributeNames: map[string]string{
			"#first":  "First",
			"#second": "Second",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gsi1pk": &types.AttributeValueMemberS{Value: "TAG#" + pair.First},
			":sk1":    &types.AttributeValueMemberS{Value: coOccPK(pair)},
			":gsi2pk": &types.AttributeValueMemberS{Value: "TAG#" + pair.Second},
			":sk2":    &types.AttributeValueMemberS{Value: coOccPK(pair)},
			":entity": &types.AttributeValueMemberS{Value: "COOC"},
			":first":  &types.AttributeValueMemberS{Value: pair.First},
			":second": &types.AttributeValueMemberS{Value: pair.Second},
			":now":    &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return apperrors.NewStorageError("increment co-occurrence", err)
	}
	return nil
}

// Get returns the pair's count record, or (nil, nil) when the tags have
// never co-occurred.
func (r *CoOccurrenceRepository) Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.TagCoOccurrencePair, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: coOccPK(pair)},
			"SK": &types.AttributeValueMemberS{Value: "COOC"},
		},
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get co-occurrence", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item coOccItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewInternalError("unmarshal co-occurrence", err)
	}
	return item.toRecord()
}

// ListByTag queries both tag indexes for every pair containing tagID.
func (r *CoOccurrenceRepository) ListByTag(ctx context.Context, tagID string) ([]*relationship.TagCoOccurrencePair, error) {
	var records []*relationship.TagCoOccurrencePair

	for _, q := range []struct {
		index string
		pk    string
	}{
		{r.tables.GSI1Name, "GSI1PK"},
		{r.tables.GSI2Name, "GSI2PK"},
	} {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tables.TableName),
			IndexName:              aws.String(q.index),
			KeyConditionExpression: aws.String(fmt.Sprintf("%s = :pk", q.pk)),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: "TAG#" + tagID},
			},
		}

		paginator := dynamodb.NewQueryPaginator(r.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, apperrors.NewStorageError("list co-occurrences", err)
			}
			for _, raw := range page.Items {
				var item coOccItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("skipping unreadable co-occurrence item", zap.Error(err))
					continue
				}
				record, err := item.toRecord()
				if err != nil {
					r.logger.Warn("skipping malformed co-occurrence item", zap.Error(err))
					continue
				}
				records = append(records, record)
			}
		}
	}
	return records, nil
}

func (i coOccItem) toRecord() (*relationship.TagCoOccurrencePair, error) {
	pair, err := relationship.Canonicalize(i.First, i.Second)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &relationship.TagCoOccurrencePair{
		Pair:      pair,
		Count:     i.PairCount,
		UpdatedAt: updatedAt,
	}, nil
}
