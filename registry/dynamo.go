package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Dynamo implements Registry on a DynamoDB table. A conditional write makes
// each identity single-shot: the first Record wins and later attempts fail
// with ErrAlreadyRecorded.
//
// Table schema:
//   - Partition key: identity (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name simvault-anchors \
//	  --attribute-definitions AttributeName=identity,AttributeType=S \
//	  --key-schema AttributeName=identity,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type Dynamo struct {
	client    DDBClient
	tableName string
}

// NewDynamo creates a DynamoDB-backed registry.
func NewDynamo(client DDBClient, tableName string) *Dynamo {
	return &Dynamo{
		client:    client,
		tableName: tableName,
	}
}

// Record implements Registry.
func (d *Dynamo) Record(ctx context.Context, identity, cid string) (Entry, error) {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			"identity": &types.AttributeValueMemberS{Value: identity},
			"cid":      &types.AttributeValueMemberS{Value: cid},
		},
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "identity",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return Entry{}, fmt.Errorf("%w: %s", ErrAlreadyRecorded, identity)
		}
		return Entry{}, fmt.Errorf("registry: putting item: %w", err)
	}

	// DynamoDB has no transaction hash; the identity doubles as the
	// confirmation reference.
	return Entry{Identity: identity, CID: cid, Ref: "ddb:" + identity}, nil
}

// Lookup implements Registry.
func (d *Dynamo) Lookup(ctx context.Context, identity string) (Entry, error) {
	resp, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"identity": &types.AttributeValueMemberS{Value: identity},
		},
	})
	if err != nil {
		return Entry{}, fmt.Errorf("registry: getting item: %w", err)
	}

	if len(resp.Item) == 0 {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}

	cidAttr, ok := resp.Item["cid"].(*types.AttributeValueMemberS)
	if !ok {
		return Entry{}, fmt.Errorf("registry: invalid cid attribute for %s", identity)
	}

	return Entry{Identity: identity, CID: cidAttr.Value, Ref: "ddb:" + identity}, nil
}

var _ Registry = (*Dynamo)(nil)
