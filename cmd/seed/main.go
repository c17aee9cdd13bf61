package main

import (
	"context"
	"fmt"
	"os"
	"surveyflow/internal/config"
	"surveyflow/internal/logging"
	"surveyflow/internal/model"
	"surveyflow/internal/repository"
	"surveyflow/internal/service"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// demoSurvey routes visitors from the pricing page to a budget question and
// everyone else to a support question, then thanks them
func demoSurvey() *model.Survey {
	return &model.Survey{
		ID:          "demo-onboarding",
		Title:       "How can we help?",
		Description: "Two questions, picked for you.",
		ContactInfo: &model.ContactSettings{
			Name:  model.FieldSetting{Collect: true},
			Email: model.FieldSetting{Collect: true, Required: true},
		},
		VisitorContext: model.VisitorContext{"source": "website"},
		Questions: []model.Question{
			{
				ID:   "route",
				Type: model.QuestionTypeClassifier,
				Options: []model.Option{
					{ID: "sales", Label: "Interested in pricing or buying", NextQuestionID: "budget"},
					{ID: "support", Label: "Existing customer needing help", NextQuestionID: "issue"},
				},
				NextQuestionID: "role",
			},
			{
				ID:           "role",
				QuestionText: "What describes you best?",
				Type:         model.QuestionTypeMultipleChoice,
				Required:     true,
				Order:        1,
				Options: []model.Option{
					{ID: "buyer", Label: "I am evaluating the product", NextQuestionID: "budget"},
					{ID: "user", Label: "I already use it", NextQuestionID: "issue"},
				},
			},
			{
				ID:             "budget",
				QuestionText:   "What monthly budget do you have in mind?",
				Type:           model.QuestionTypeText,
				Order:          2,
				NextQuestionID: "thanks",
			},
			{
				ID:             "issue",
				QuestionText:   "What is getting in your way?",
				Type:           model.QuestionTypeText,
				Required:       true,
				Order:          3,
				NextQuestionID: "thanks",
			},
			{
				ID:           "thanks",
				QuestionText: "Thanks, we will be in touch.",
				Type:         model.QuestionTypeFinish,
				Order:        4,
			},
		},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	repository.EnsureIndexes(ctx, db, logger)

	authSvc := service.NewAuthService(service.AuthConfig{
		Username: cfg.OwnerUsername,
		Password: cfg.OwnerPassword,
		TenantID: cfg.OwnerTenantID,
		Secret:   cfg.JWTSecret,
	})
	login, err := authSvc.Login(cfg.OwnerUsername, cfg.OwnerPassword)
	if err != nil {
		logger.Fatal("owner credentials rejected", zap.Error(err))
	}
	owner := &model.OwnerClaims{OwnerID: login.OwnerID, TenantID: login.TenantID}

	surveySvc := service.NewSurveyService(repository.NewSurveyRepo(db), logger)
	survey, report, err := surveySvc.Create(ctx, owner, demoSurvey())
	if err != nil {
		logger.Fatal("failed to seed survey", zap.Error(err))
	}
	for _, issue := range report.Issues {
		logger.Warn("seeded survey has a graph warning", zap.String("kind", string(issue.Kind)), zap.String("message", issue.Message))
	}

	logger.Info("survey seeded",
		zap.String("tenantId", survey.TenantID),
		zap.String("surveyId", survey.ID),
		zap.String("respondUrl", fmt.Sprintf("/v1/t/%s/surveys/%s/responses", survey.TenantID, survey.ID)),
	)
}
