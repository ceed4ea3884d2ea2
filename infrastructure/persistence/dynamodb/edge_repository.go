package dynamodb

import (
	"context"
	"errors"
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

// EdgeRepository stores aggregated edges in the single table. Writes are
// conditional on the stored SignalCount so a concurrent writer on another
// instance cannot silently overwrite a newer state; losers retry.
type EdgeRepository struct {
	client *dynamodb.Client
	tables Tables
	logger *zap.Logger
}

// NewEdgeRepository creates a DynamoDB-backed edge repository.
func NewEdgeRepository(client *dynamodb.Client, tables Tables, logger *zap.Logger) *EdgeRepository {
	return &EdgeRepository{client: client, tables: tables, logger: logger}
}

var _ ports.EdgeRepository = (*EdgeRepository)(nil)

// edgeItem is the DynamoDB shape of a RelationshipEdge.
type edgeItem struct {
	PK                 string  `dynamodbav:"PK"`
	SK                 string  `dynamodbav:"SK"`
	GSI1PK             string  `dynamodbav:"GSI1PK"`
	GSI1SK             string  `dynamodbav:"GSI1SK"`
	GSI2PK             string  `dynamodbav:"GSI2PK"`
	GSI2SK             string  `dynamodbav:"GSI2SK"`
	EntityType         string  `dynamodbav:"EntityType"`
	First              string  `dynamodbav:"First"`
	Second             string  `dynamodbav:"Second"`
	NavigationStrength float64 `dynamodbav:"NavigationStrength"`
	SearchStrength     float64 `dynamodbav:"SearchStrength"`
	ExplicitStrength   float64 `dynamodbav:"ExplicitStrength"`
	SignalCount        int64   `dynamodbav:"SignalCount"`
	LastSeen           string  `dynamodbav:"LastSeen"`
	CreatedAt          string  `dynamodbav:"CreatedAt"`
}

func edgePK(pair relationship.CanonicalPair) string {
	return "EDGE#" + pair.Key()
}

func newEdgeItem(edge *relationship.RelationshipEdge) edgeItem {
	return edgeItem{
		PK:                 edgePK(edge.Pair),
		SK:                 "EDGE",
		GSI1PK:             "MEMBER#" + edge.Pair.First,
		GSI1SK:             edgePK(edge.Pair),
		GSI2PK:             "MEMBER#" + edge.Pair.Second,
		GSI2SK:             edgePK(edge.Pair),
		EntityType:         "EDGE",
		First:              edge.Pair.First,
		Second:             edge.Pair.Second,
		NavigationStrength: edge.NavigationStrength,
		SearchStrength:     edge.SearchStrength,
		ExplicitStrength:   edge.ExplicitStrength,
		SignalCount:        edge.SignalCount,
		LastSeen:           edge.LastSeen.Format(time.RFC3339Nano),
		CreatedAt:          edge.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (i edgeItem) toEdge() (*relationship.RelationshipEdge, error) {
	pair, err := relationship.Canonicalize(i.First, i.Second)
	if err != nil {
		return nil, err
	}
	lastSeen, err := time.Parse(time.RFC3339Nano, i.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("parse LastSeen: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse CreatedAt: %w", err)
	}
	return &relationship.RelationshipEdge{
		Pair:               pair,
		NavigationStrength: i.NavigationStrength,
		SearchStrength:     i.SearchStrength,
		ExplicitStrength:   i.ExplicitStrength,
		SignalCount:        i.SignalCount,
		LastSeen:           lastSeen,
		CreatedAt:          createdAt,
	}, nil
}

// Get returns the edge for a pair, or (nil, nil) when none exists.
func (r *EdgeRepository) Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.RelationshipEdge, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: edgePK(pair)},
			"SK": &types.AttributeValueMemberS{Value: "EDGE"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get edge", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewInternalError("unmarshal edge", err)
	}
	return item.toEdge()
}

// Put writes the edge, conditional on SignalCount not having moved since
// the edge was read. edge.SignalCount already includes the merge, so the
// expected stored value is one less; a brand-new edge requires the row to
// be absent.
func (r *EdgeRepository) Put(ctx context.Context, edge *relationship.RelationshipEdge) error {
	av, err := attributevalue.MarshalMap(newEdgeItem(edge))
	if err != nil {
		return apperrors.NewInternalError("marshal edge", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tables.TableName),
		Item:      av,
	}
	if edge.SignalCount <= 1 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK) OR SignalCount = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", edge.SignalCount-1)},
		}
	} else {
		input.ConditionExpression = aws.String("SignalCount = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", edge.SignalCount-1)},
		}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			r.logger.Debug("edge write lost the race",
				zap.String("edgeKey", edge.Pair.Key()),
				zap.Int64("signalCount", edge.SignalCount),
			)
			return apperrors.NewUnavailableError("edge write conflicted, retry")
		}
		return apperrors.NewStorageError("put edge", err)
	}
	return nil
}

// ListByMember queries both member indexes; the member is on GSI1 when it
// sorts first in the pair and on GSI2 otherwise, and a single content ID can
// be on either side across its edges.
func (r *EdgeRepository) ListByMember(ctx context.Context, contentID string) ([]*relationship.RelationshipEdge, error) {
	var edges []*relationship.RelationshipEdge

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
				":pk": &types.AttributeValueMemberS{Value: "MEMBER#" + contentID},
			},
		}

		paginator := dynamodb.NewQueryPaginator(r.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, apperrors.NewStorageError("list edges", err)
			}
			for _, raw := range page.Items {
				var item edgeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("skipping unreadable edge item", zap.Error(err))
					continue
				}
				edge, err := item.toEdge()
				if err != nil {
					r.logger.Warn("skipping malformed edge item", zap.Error(err))
					continue
				}
				edges = append(edges, edge)
			}
		}
	}
	return edges, nil
}
