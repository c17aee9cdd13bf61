package dynamo

import (
	"errors"
	"fmt"
	"surveyflow/internal/model"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	entitySurvey     = "Survey"
	entitySubmission = "Submission"

	surveySKPrefix     = "SURVEY#"
	submissionSKPrefix = "SESSION#"
)

func tenantPK(tenantID string) string {
	return "TENANT#" + tenantID
}

func surveySK(surveyID string) string {
	return surveySKPrefix + surveyID
}

func submissionPK(tenantID, surveyID string) string {
	return fmt.Sprintf("TENANT#%s#SURVEY#%s", tenantID, surveyID)
}

func submissionSK(sessionID string) string {
	return submissionSKPrefix + sessionID
}

// surveyItem is the stored shape of a survey
type surveyItem struct {
	PK             string                 `dynamodbav:"PK"`
	SK             string                 `dynamodbav:"SK"`
	EntityType     string                 `dynamodbav:"EntityType"`
	ID             string                 `dynamodbav:"ID"`
	TenantID       string                 `dynamodbav:"TenantID"`
	OwnerID        string                 `dynamodbav:"OwnerID"`
	Title          string                 `dynamodbav:"Title"`
	Description    string                 `dynamodbav:"Description,omitempty"`
	ContactInfo    *model.ContactSettings `dynamodbav:"ContactInfo,omitempty"`
	Questions      []model.Question       `dynamodbav:"Questions"`
	VisitorContext map[string]string      `dynamodbav:"VisitorContext,omitempty"`
	CreatedAt      string                 `dynamodbav:"CreatedAt"`
	UpdatedAt      string                 `dynamodbav:"UpdatedAt"`
}

// submissionItem is the stored shape of a submission
type submissionItem struct {
	PK          string               `dynamodbav:"PK"`
	SK          string               `dynamodbav:"SK"`
	EntityType  string               `dynamodbav:"EntityType"`
	SessionID   string               `dynamodbav:"SessionID"`
	TenantID    string               `dynamodbav:"TenantID"`
	SurveyID    string               `dynamodbav:"SurveyID"`
	Answers     []model.SurveyAnswer `dynamodbav:"Answers"`
	ContactInfo *model.ContactInfo   `dynamodbav:"ContactInfo,omitempty"`
	SubmittedAt string               `dynamodbav:"SubmittedAt"`
}

func surveyToItem(s *model.Survey) (map[string]types.AttributeValue, error) {
	item := surveyItem{
		PK:             tenantPK(s.TenantID),
		SK:             surveySK(s.ID),
		EntityType:     entitySurvey,
		ID:             s.ID,
		TenantID:       s.TenantID,
		OwnerID:        s.OwnerID,
		Title:          s.Title,
		Description:    s.Description,
		ContactInfo:    s.ContactInfo,
		Questions:      s.Questions,
		VisitorContext: s.VisitorContext,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	return attributevalue.MarshalMap(item)
}

// itemToSurvey is the only place a stored survey is decoded and checked
func itemToSurvey(av map[string]types.AttributeValue) (*model.Survey, error) {
	var item surveyItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey item: %w", err)
	}
	if item.EntityType != entitySurvey {
		return nil, fmt.Errorf("unexpected entity type %q", item.EntityType)
	}
	if item.ID == "" || item.TenantID == "" {
		return nil, errors.New("survey item without id or tenant")
	}
	if item.SK != surveySK(item.ID) || item.PK != tenantPK(item.TenantID) {
		return nil, fmt.Errorf("survey item %s has inconsistent keys", item.ID)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("survey %s: bad CreatedAt: %w", item.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("survey %s: bad UpdatedAt: %w", item.ID, err)
	}

	questions := item.Questions
	if questions == nil {
		questions = []model.Question{}
	}
	return &model.Survey{
		ID:             item.ID,
		TenantID:       item.TenantID,
		OwnerID:        item.OwnerID,
		Title:          item.Title,
		Description:    item.Description,
		ContactInfo:    item.ContactInfo,
		Questions:      questions,
		VisitorContext: item.VisitorContext,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func submissionToItem(rec *model.SubmissionRecord) (map[string]types.AttributeValue, error) {
	item := submissionItem{
		PK:          submissionPK(rec.TenantID, rec.SurveyID),
		SK:          submissionSK(rec.SessionID),
		EntityType:  entitySubmission,
		SessionID:   rec.SessionID,
		TenantID:    rec.TenantID,
		SurveyID:    rec.SurveyID,
		Answers:     rec.Answers,
		ContactInfo: rec.ContactInfo,
		SubmittedAt: rec.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}
	return attributevalue.MarshalMap(item)
}

// itemToSubmission is the only place a stored submission is decoded and checked
func itemToSubmission(av map[string]types.AttributeValue) (*model.SubmissionRecord, error) {
	var item submissionItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission item: %w", err)
	}
	if item.EntityType != entitySubmission {
		return nil, fmt.Errorf("unexpected entity type %q", item.EntityType)
	}
	if item.SessionID == "" || item.SK != submissionSK(item.SessionID) {
		return nil, errors.New("submission item without a consistent session id")
	}

	submittedAt, err := time.Parse(time.RFC3339Nano, item.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("submission %s: bad SubmittedAt: %w", item.SessionID, err)
	}

	answers := item.Answers
	if answers == nil {
		answers = []model.SurveyAnswer{}
	}
	return &model.SubmissionRecord{
		SessionID:   item.SessionID,
		TenantID:    item.TenantID,
		SurveyID:    item.SurveyID,
		Answers:     answers,
		ContactInfo: item.ContactInfo,
		SubmittedAt: submittedAt,
	}, nil
}
