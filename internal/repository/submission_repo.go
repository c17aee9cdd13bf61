package repository

import (
	"context"
	"surveyflow/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SubmissionRepo stores completed responses. Save is idempotent on the session id.
type SubmissionRepo interface {
	Save(ctx context.Context, rec *model.SubmissionRecord) (created bool, err error)
	ListBySurvey(ctx context.Context, tenantID, surveyID string) ([]*model.SubmissionRecord, error)
}

type submissionRepo struct {
	collection *mongo.Collection
}

// NewSubmissionRepo creates a new submission repository
func NewSubmissionRepo(db *mongo.Database) SubmissionRepo {
	return &submissionRepo{
		collection: db.Collection("submissions"),
	}
}

// Save inserts the record unless one exists for the same session
func (r *submissionRepo) Save(ctx context.Context, rec *model.SubmissionRecord) (bool, error) {
	doc := bson.M{
		"tenantId":    rec.TenantID,
		"surveyId":    rec.SurveyID,
		"answers":     rec.Answers,
		"submittedAt": rec.SubmittedAt,
	}
	if rec.ContactInfo != nil {
		doc["contactInfo"] = rec.ContactInfo
	}

	opts := options.Update().SetUpsert(true)
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": rec.SessionID}, bson.M{"$setOnInsert": doc}, opts)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (r *submissionRepo) ListBySurvey(ctx context.Context, tenantID, surveyID string) ([]*model.SubmissionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID, "surveyId": surveyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []*model.SubmissionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
