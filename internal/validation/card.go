// Package validation checks card payloads before they reach the database.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	now      func() time.Time
	validate *validator.Validate
}

// New returns a Validator using clock for due date checks. A nil clock
// means time.Now.
func New(clock func() time.Time) *Validator {
	if clock == nil {
		clock = time.Now
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Validator{now: clock, validate: validate}
}

// CreateCard fails on the first structural problem in req.
func (v *Validator) CreateCard(req *models.CreateCardRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.Validation("Card title is required")
	}
	if req.ColumnID == "" {
		return apperrors.Validation("Column ID is required")
	}
	if err := v.rawDueDate(req.DueDate); err != nil {
		return err
	}
	if err := v.priority(req.Priority); err != nil {
		return err
	}
	_, err := v.Labels(req.Labels)
	return err
}

func (v *Validator) UpdateCard(req *models.UpdateCardRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apperrors.Validation("Card title is required")
	}
	if err := v.rawDueDate(req.DueDate); err != nil {
		return err
	}
	if req.Priority != nil {
		if err := v.priority(*req.Priority); err != nil {
			return err
		}
	}
	_, err := v.Labels(req.Labels)
	return err
}

// DueDateText returns the string held by a raw due date value. Absent and
// null values give "". Any other non-string value is a date error.
func DueDateText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return "", apperrors.Validation("Invalid due date format")
	}
	return text, nil
}

func (v *Validator) rawDueDate(raw json.RawMessage) error {
	text, err := DueDateText(raw)
	if err != nil || text == "" {
		return err
	}
	return v.dueDate(text)
}

func (v *Validator) dueDate(raw string) error {
	if _, err := v.ParseDueDate(raw); err != nil {
		if apperrors.IsValidation(err) {
			return err
		}
		return apperrors.Validation("Invalid due date format")
	}
	return nil
}

func (v *Validator) priority(p string) error {
	if err := v.validate.Var(p, "omitempty,oneof=low medium high"); err != nil {
		return apperrors.Validation("Priority must be one of low, medium, high")
	}
	return nil
}

// Labels decodes a raw labels value. An absent or null value yields no
// labels.
func (v *Validator) Labels(raw json.RawMessage) ([]models.LabelInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, apperrors.Validation("Labels must be an array")
	}

	var labels []models.LabelInput
	if err := json.Unmarshal(trimmed, &labels); err != nil {
		return nil, apperrors.Validation("All labels must have name and color")
	}
	for i := range labels {
		if err := v.validate.Struct(&labels[i]); err != nil {
			return nil, apperrors.Validation("All labels must have name and color")
		}
	}
	return labels, nil
}

// Struct runs the validate tags on a request body and reports the first
// failing field.
func (v *Validator) Struct(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return apperrors.Validation(fe.Field() + " is required")
		case "oneof":
			return apperrors.Validation(fe.Field() + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			return apperrors.Validation(fe.Field() + " is invalid")
		}
	}
	return apperrors.Validation(err.Error())
}
