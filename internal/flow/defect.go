package flow

import (
	"fmt"

	"go.uber.org/zap"
)

// DefectKind classifies survey authoring bugs found while a response runs
type DefectKind string

const (
	DefectDanglingEdge    DefectKind = "dangling_edge"    // nextQuestionId points at a missing question
	DefectClassifierCycle DefectKind = "classifier_cycle" // classifier chain came back to a visited node
	DefectRevisit         DefectKind = "revisit"          // flow led back to an answered question
	DefectUnknownOption   DefectKind = "unknown_option"   // classifier picked an id outside its candidates
)

// Defect is a configuration problem the engine degraded around
type Defect struct {
	Kind       DefectKind
	SurveyID   string
	QuestionID string
	Target     string
}

func (d Defect) String() string {
	if d.Target != "" {
		return fmt.Sprintf("%s at %s -> %s", d.Kind, d.QuestionID, d.Target)
	}
	return fmt.Sprintf("%s at %s", d.Kind, d.QuestionID)
}

// DefectHook receives every defect, e.g. to count them in metrics
type DefectHook func(Defect)

type defectReporter struct {
	logger *zap.Logger
	hook   DefectHook
}

func (r defectReporter) report(d Defect) {
	r.logger.Warn("survey configuration defect",
		zap.String("kind", string(d.Kind)),
		zap.String("surveyId", d.SurveyID),
		zap.String("questionId", d.QuestionID),
		zap.String("target", d.Target),
	)
	if r.hook != nil {
		r.hook(d)
	}
}
