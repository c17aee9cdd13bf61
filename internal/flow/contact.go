package flow

import (
	"errors"
	"strings"
	"surveyflow/internal/model"

	"github.com/go-playground/validator/v10"
)

var contactValidator = validator.New()

type contactInput struct {
	Name  string `validate:"max=200"`
	Email string `validate:"omitempty,email,max=254"`
	Phone string `validate:"omitempty,max=32"`
}

var contactFieldNames = map[string]string{
	"Name":  "name",
	"Email": "email",
	"Phone": "phone",
}

// ValidateContact trims the submitted contact info, drops fields the survey does
// not collect and checks required and format rules.
func ValidateContact(settings *model.ContactSettings, info model.ContactInfo) (*model.ContactInfo, error) {
	if !settings.CollectsAny() {
		return nil, nil
	}

	cleaned := model.ContactInfo{}
	if settings.Name.Collect {
		cleaned.Name = strings.TrimSpace(info.Name)
	}
	if settings.Email.Collect {
		cleaned.Email = strings.TrimSpace(info.Email)
	}
	if settings.Phone.Collect {
		cleaned.Phone = strings.TrimSpace(info.Phone)
	}

	cerr := &ContactError{}
	if settings.Name.Required && cleaned.Name == "" {
		cerr.Missing = append(cerr.Missing, "name")
	}
	if settings.Email.Required && cleaned.Email == "" {
		cerr.Missing = append(cerr.Missing, "email")
	}
	if settings.Phone.Required && cleaned.Phone == "" {
		cerr.Missing = append(cerr.Missing, "phone")
	}

	err := contactValidator.Struct(contactInput{Name: cleaned.Name, Email: cleaned.Email, Phone: cleaned.Phone})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			cerr.Invalid = append(cerr.Invalid, contactFieldNames[fe.Field()])
		}
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return nil, cerr
	}
	if cleaned.IsEmpty() {
		return nil, nil
	}
	return &cleaned, nil
}
