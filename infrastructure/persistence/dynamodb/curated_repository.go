package dynamodb

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// CuratedTagRepository stores curated tag relationships. Rows are keyed by
// the (tag1, tag2, type) upsert key so repeated upserts land on the same
// item; GSI1 maps the row ID back to the item for lookups and deletes.
type CuratedTagRepository struct {
	client *dynamodb.Client
	tables Tables
	logger *zap.Logger
}

// NewCuratedTagRepository creates a DynamoDB-backed curated repository.
func NewCuratedTagRepository(client *dynamodb.Client, tables Tables, logger *zap.Logger) *CuratedTagRepository {
	return &CuratedTagRepository{client: client, tables: tables, logger: logger}
}

var _ ports.CuratedTagRepository = (*CuratedTagRepository)(nil)

type curatedItem struct {
	PK             string  `dynamodbav:"PK"`
	SK             string  `dynamodbav:"SK"`
	GSI1PK         string  `dynamodbav:"GSI1PK"`
	GSI1SK         string  `dynamodbav:"GSI1SK"`
	EntityType     string  `dynamodbav:"EntityType"`
	RelationshipID string  `dynamodbav:"RelationshipID"`
	Tag1           string  `dynamodbav:"Tag1"`
	Tag2           string  `dynamodbav:"Tag2"`
	RelationType   string  `dynamodbav:"RelationType"`
	Strength       float64 `dynamodbav:"Strength"`
	CreatedAt      string  `dynamodbav:"CreatedAt"`
	UpdatedAt      string  `dynamodbav:"UpdatedAt"`
}

func curatedPK(upsertKey string) string {
	return "TAGREL#" + upsertKey
}

// Upsert creates or replaces the relationship for rel's upsert key. The
// stored ID and CreatedAt survive a replace; only strength and UpdatedAt
// move. Returns the stored row.
func (r *CuratedTagRepository) Upsert(ctx context.Context, rel *relationship.CuratedTagRelationship) (*relationship.CuratedTagRelationship, error) {
	stored := *rel

	existing, err := r.getByUpsertKey(ctx, rel.UpsertKey())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.New().String()
	}

	item := curatedItem{
		PK:             curatedPK(stored.UpsertKey()),
		SK:             "TAGREL",
		GSI1PK:         "TAGRELID#" + stored.ID,
		GSI1SK:         "TAGREL",
		EntityType:     "TAGREL",
		RelationshipID: stored.ID,
		Tag1:           stored.Tag1,
		Tag2:           stored.Tag2,
		RelationType:   string(stored.Type),
		Strength:       stored.Strength,
		CreatedAt:      stored.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      stored.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("marshal curated relationship", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tables.TableName),
		Item:      av,
	})
	if err != nil {
		return nil, apperrors.NewStorageError("upsert curated relationship", err)
	}
	return &stored, nil
}

// GetByID returns the relationship with the given ID, or (nil, nil).
func (r *CuratedTagRepository) GetByID(ctx context.Context, id string) (*relationship.CuratedTagRelationship, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.TableName),
		IndexName:              aws.String(r.tables.GSI1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "TAGRELID#" + id},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get curated relationship", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var item curatedItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, apperrors.NewInternalError("unmarshal curated relationship", err)
	}
	return item.toRelationship()
}

// Delete removes the relationship. Unknown IDs are a no-op; the service
// layer decides whether that is NotFound.
func (r *CuratedTagRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tables.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: curatedPK(existing.UpsertKey())},
			"SK": &types.AttributeValueMemberS{Value: "TAGREL"},
		},
	})
	if err != nil {
		return apperrors.NewStorageError("delete curated relationship", err)
	}
	return nil
}

// List scans curated rows and filters in memory. The table section is
// admin-sized, so a filtered scan stays cheap.
func (r *CuratedTagRepository) List(ctx context.Context, filter ports.CuratedTagFilter) ([]*relationship.CuratedTagRelationship, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tables.TableName),
		FilterExpression: aws.String("EntityType = :entity"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entity": &types.AttributeValueMemberS{Value: "TAGREL"},
		},
	}

	var rels []*relationship.CuratedTagRelationship
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.NewStorageError("list curated relationships", err)
		}
		for _, raw := range page.Items {
			var item curatedItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("skipping unreadable curated item", zap.Error(err))
				continue
			}
			rel, err := item.toRelationship()
			if err != nil {
				r.logger.Warn("skipping malformed curated item", zap.Error(err))
				continue
			}
			if !matchesFilter(rel, filter) {
				continue
			}
			rels = append(rels, rel)
		}
	}

	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Strength != rels[j].Strength {
			return rels[i].Strength > rels[j].Strength
		}
		return rels[i].UpsertKey() < rels[j].UpsertKey()
	})
	if filter.Limit > 0 && len(rels) > filter.Limit {
		rels = rels[:filter.Limit]
	}
	return rels, nil
}

func (r *CuratedTagRepository) getByUpsertKey(ctx context.Context, upsertKey string) (*relationship.CuratedTagRelationship, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: curatedPK(upsertKey)},
			"SK": &types.AttributeValueMemberS{Value: "TAGREL"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get curated relationship", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item curatedItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewInternalError("unmarshal curated relationship", err)
	}
	return item.toRelationship()
}

func (i curatedItem) toRelationship() (*relationship.CuratedTagRelationship, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &relationship.CuratedTagRelationship{
		ID:        i.RelationshipID,
		Tag1:      i.Tag1,
		Tag2:      i.Tag2,
		Type:      relationship.RelationType(i.RelationType),
		Strength:  i.Strength,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func matchesFilter(rel *relationship.CuratedTagRelationship, filter ports.CuratedTagFilter) bool {
	if filter.TagID != "" && rel.Tag1 != filter.TagID && rel.Tag2 != filter.TagID {
		return false
	}
	if filter.Type != "" && rel.Type != filter.Type {
		return false
	}
	return rel.Strength >= filter.MinStrength
}
