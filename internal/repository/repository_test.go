package repository

import (
	"context"
	"surveyflow/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSurveyRepo_GetByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewSurveyRepo(mt.DB)
		ns := mt.DB.Name() + ".surveys"
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "s1"},
			{Key: "tenantId", Value: "t1"},
			{Key: "title", Value: "Onboarding"},
			{Key: "questions", Value: bson.A{
				bson.D{{Key: "id", Value: "q1"}, {Key: "type", Value: "text"}, {Key: "questionText", Value: "Hi?"}, {Key: "order", Value: 1}},
			}},
		}))

		survey, err := repo.GetByID(context.Background(), "t1", "s1")

		require.NoError(mt, err)
		require.NotNil(mt, survey)
		assert.Equal(mt, "s1", survey.ID)
		assert.Equal(mt, "Onboarding", survey.Title)
		require.Len(mt, survey.Questions, 1)
		assert.Equal(mt, model.QuestionTypeText, survey.Questions[0].Type)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewSurveyRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".surveys", mtest.FirstBatch))

		survey, err := repo.GetByID(context.Background(), "t1", "nope")

		require.NoError(mt, err)
		assert.Nil(mt, survey)
	})
}

func TestSurveyRepo_UpdateMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		repo := NewSurveyRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.Update(context.Background(), &model.Survey{ID: "s1", TenantID: "t1"})

		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestSubmissionRepo_SaveIsIdempotent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	rec := &model.SubmissionRecord{
		SessionID:   "sess-1",
		TenantID:    "t1",
		SurveyID:    "s1",
		Answers:     []model.SurveyAnswer{{QuestionID: "q1", Answer: "yes"}},
		SubmittedAt: time.Now().UTC(),
	}

	mt.Run("first save inserts", func(mt *mtest.T) {
		repo := NewSubmissionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "sess-1"}}}},
		))

		created, err := repo.Save(context.Background(), rec)

		require.NoError(mt, err)
		assert.True(mt, created)
	})

	mt.Run("replay is a no-op", func(mt *mtest.T) {
		repo := NewSubmissionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		created, err := repo.Save(context.Background(), rec)

		require.NoError(mt, err)
		assert.False(mt, created)
	})
}
