package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-trade-client/internal/domain"
)

// VisitAPI is the part of the DynamoDB client the visit repo uses.
type VisitAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// VisitRepo stores wizard visits in DynamoDB. Expiry is enforced by the table TTL on
// expires_at and, because TTL deletion is lazy, checked again on read.
type VisitRepo struct {
	client    VisitAPI
	tableName string
}

func NewVisitRepo(client VisitAPI, tableName string) *VisitRepo {
	return &VisitRepo{client: client, tableName: tableName}
}

func (r *VisitRepo) Put(ctx context.Context, v *domain.Visit) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal visit: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VisitRepo) Get(ctx context.Context, visitID string) (*domain.Visit, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldVisitID, visitID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	var v domain.Visit
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	if v.Expired(time.Now()) {
		return nil, fmt.Errorf("visit expired: %w", domain.ErrNotFound)
	}
	return &v, nil
}

// Update applies the set fields of u to an existing visit.
func (r *VisitRepo) Update(ctx context.Context, visitID string, u domain.VisitUpdate) error {
	ue, err := buildUpdateExpr(visitUpdateFields(u))
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldVisitID, visitID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldVisitID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("visit not found: %w", domain.ErrNotFound)
	}
	return err
}

func (r *VisitRepo) Delete(ctx context.Context, visitID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldVisitID, visitID),
	})
	return err
}

func visitUpdateFields(u domain.VisitUpdate) map[string]interface{} {
	fields := make(map[string]interface{}, 2)
	if u.IntroAcknowledged != nil {
		fields[fieldIntroAcknowledged] = *u.IntroAcknowledged
	}
	if u.SelectedDocType != nil {
		fields[fieldSelectedDocType] = string(*u.SelectedDocType)
	}
	return fields
}

// Ping checks that the visits table is reachable.
func (r *VisitRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}
