package flow

import (
	"math"
	"surveyflow/internal/model"
)

// Progress returns the percent of respondent-visible questions answered.
// Classifier nodes count neither as answered nor as total.
func Progress(questions []model.Question, answers []model.SurveyAnswer, step model.Step) int {
	if step == model.StepDone {
		return 100
	}

	total := 0
	kinds := make(map[string]model.QuestionType, len(questions))
	for i := range questions {
		kinds[questions[i].ID] = questions[i].Type
		if !questions[i].IsClassifier() {
			total++
		}
	}
	if total == 0 {
		return 0
	}

	answered := 0
	for _, a := range answers {
		if t, ok := kinds[a.QuestionID]; ok && t != model.QuestionTypeClassifier {
			answered++
		}
	}

	pct := int(math.Round(100 * float64(answered) / float64(total)))
	if pct > 100 {
		pct = 100
	}
	return pct
}
