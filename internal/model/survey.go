package model

import "time"

// FieldSetting toggles collection of a single contact field
type FieldSetting struct {
	Collect  bool `json:"collect" bson:"collect" dynamodbav:"collect"`
	Required bool `json:"required" bson:"required" dynamodbav:"required"`
}

// ContactSettings configures which contact fields a survey asks for
type ContactSettings struct {
	Name  FieldSetting `json:"name" bson:"name" dynamodbav:"name"`
	Email FieldSetting `json:"email" bson:"email" dynamodbav:"email"`
	Phone FieldSetting `json:"phone" bson:"phone" dynamodbav:"phone"`
}

// CollectsAny reports whether the contact step is needed at all
func (c *ContactSettings) CollectsAny() bool {
	if c == nil {
		return false
	}
	return c.Name.Collect || c.Email.Collect || c.Phone.Collect
}

// VisitorContext is free-form context about the respondent (page, referrer, UTM tags...)
// handed to the classifier
type VisitorContext map[string]string

// Survey is a persistent questionnaire owned by a tenant
type Survey struct {
	ID             string           `json:"id" bson:"_id"`
	TenantID       string           `json:"tenantId" bson:"tenantId"`
	OwnerID        string           `json:"ownerId" bson:"ownerId"`
	Title          string           `json:"title" bson:"title"`
	Description    string           `json:"description,omitempty" bson:"description,omitempty"`
	ContactInfo    *ContactSettings `json:"contactInfo,omitempty" bson:"contactInfo,omitempty"`
	Questions      []Question       `json:"questions" bson:"questions"`
	VisitorContext VisitorContext   `json:"visitorContext,omitempty" bson:"visitorContext,omitempty"`
	CreatedAt      time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// Question returns the question with the given id, or nil
func (s *Survey) Question(id string) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}
