package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DBClient is the subset of the DynamoDB API the repositories use
type DBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type surveyRepo struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewSurveyRepo creates a DynamoDB backed survey repository
func NewSurveyRepo(client DBClient, tableName string, logger *zap.Logger) repository.SurveyRepo {
	return &surveyRepo{client: client, tableName: tableName, logger: logger}
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) error {
	now := time.Now().UTC()
	survey.CreatedAt = now
	survey.UpdatedAt = now
	err := r.put(ctx, survey, expression.Name("PK").AttributeNotExists())
	if isConditionFailed(err) {
		return repository.ErrAlreadyExists
	}
	return err
}

func (r *surveyRepo) Update(ctx context.Context, survey *model.Survey) error {
	survey.UpdatedAt = time.Now().UTC()
	err := r.put(ctx, survey, expression.Name("PK").AttributeExists())
	if isConditionFailed(err) {
		return repository.ErrNotFound
	}
	return err
}

func (r *surveyRepo) put(ctx context.Context, survey *model.Survey, condition expression.ConditionBuilder) error {
	item, err := surveyToItem(survey)
	if err != nil {
		return fmt.Errorf("failed to marshal survey: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

func (r *surveyRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Survey, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       surveyKey(tenantID, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return itemToSurvey(out.Item)
}

func (r *surveyRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.Survey, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(tenantPK(tenantID))).
		And(expression.Key("SK").BeginsWith(surveySKPrefix))

	items, err := queryAll(ctx, r.client, r.tableName, keyExpr)
	if err != nil {
		return nil, err
	}

	surveys := make([]*model.Survey, 0, len(items))
	for _, item := range items {
		s, err := itemToSurvey(item)
		if err != nil {
			r.logger.Warn("skipping unreadable survey item", zap.Error(err))
			continue
		}
		surveys = append(surveys, s)
	}
	sort.SliceStable(surveys, func(i, j int) bool {
		return surveys[i].UpdatedAt.After(surveys[j].UpdatedAt)
	})
	return surveys, nil
}

func (r *surveyRepo) Delete(ctx context.Context, tenantID, id string) error {
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeExists()).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      surveyKey(tenantID, id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if isConditionFailed(err) {
		return repository.ErrNotFound
	}
	return err
}

type submissionRepo struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
}

// NewSubmissionRepo creates a DynamoDB backed submission repository
func NewSubmissionRepo(client DBClient, tableName string, logger *zap.Logger) repository.SubmissionRepo {
	return &submissionRepo{client: client, tableName: tableName, logger: logger}
}

// Save writes the submission once; a replay for the same session is a no-op
func (r *submissionRepo) Save(ctx context.Context, rec *model.SubmissionRecord) (bool, error) {
	item, err := submissionToItem(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal submission: %w", err)
	}
	expr, err := expression.NewBuilder().WithCondition(expression.Name("PK").AttributeNotExists()).Build()
	if err != nil {
		return false, fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *submissionRepo) ListBySurvey(ctx context.Context, tenantID, surveyID string) ([]*model.SubmissionRecord, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(submissionPK(tenantID, surveyID))).
		And(expression.Key("SK").BeginsWith(submissionSKPrefix))

	items, err := queryAll(ctx, r.client, r.tableName, keyExpr)
	if err != nil {
		return nil, err
	}

	records := make([]*model.SubmissionRecord, 0, len(items))
	for _, item := range items {
		rec, err := itemToSubmission(item)
		if err != nil {
			r.logger.Warn("skipping unreadable submission item", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records, nil
}

func queryAll(ctx context.Context, client DBClient, table string, keyExpr expression.KeyConditionBuilder) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(table),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query items: %w", err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func surveyKey(tenantID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: tenantPK(tenantID)},
		"SK": &types.AttributeValueMemberS{Value: surveySK(id)},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
