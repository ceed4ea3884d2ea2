// Package dynamodb implements the storage ports on a single DynamoDB table.
// It is the managed backend for multi-instance deployments where the
// embedded store's single-owner model does not fit.
//
// Single-table layout:
//
//	PK                   SK       GSI1PK            GSI2PK
//	EDGE#<canonical>     EDGE     MEMBER#<first>    MEMBER#<second>
//	SIGNAL#<id>          SIGNAL   SIGNALS           -
//	COOC#<canonical>     COOC     TAG#<first>       TAG#<second>
//	TAGREL#<upsert key>  TAGREL   TAGRELID#<id>     -
//
// GSI1 and GSI2 both project all attributes; edge and co-occurrence rows
// appear in both so a single pair member resolves the row from either side.
package dynamodb

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// Tables carries the table and index names shared by all repositories.
type Tables struct {
	TableName string
	GSI1Name  string
	GSI2Name  string
}

// NewClient builds a DynamoDB client from the default AWS config chain.
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, apperrors.NewStorageError("load aws config", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}
