package userui

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,24}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

type loginForm struct {
	Username string `label:"Username" validate:"required"`
	Password string `label:"Password" validate:"required"`
}

type registerForm struct {
	Username    string `label:"Username" validate:"required,username"`
	Email       string `label:"Email" validate:"omitempty,email"`
	DisplayName string `label:"Display name" validate:"max=48"`
	Password    string `label:"Password" validate:"required,min=8,max=128"`
}

type changePasswordForm struct {
	CurrentPassword string `label:"Current password" validate:"required"`
	NewPassword     string `label:"New password" validate:"required"`
	ConfirmPassword string `label:"Confirm password" validate:"eqfield=NewPassword"`
}

type resetPasswordForm struct {
	NewPassword     string `label:"New password" validate:"required"`
	ConfirmPassword string `label:"Confirm password" validate:"eqfield=NewPassword"`
}

type forgotForm struct {
	Email string `label:"Email" validate:"required"`
}

// formMessages turns validator output into sentences for the page.
func formMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid form submission."}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "eqfield":
		return msgPasswordsMismatch
	case "username":
		return "Username must be 3-24 characters with letters, numbers, or underscore."
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

func isMismatch(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == "eqfield" {
			return true
		}
	}
	return false
}

var fieldLabels = map[string]string{
	"username":     "Username",
	"email":        "Email",
	"display_name": "Display name",
	"password":     "Password",
	"new_password": "New password",
	"company":      "Company",
	"position":     "Position",
	"status":       "Status",
	"location":     "Location",
	"job_type":     "Job type",
	"notes":        "Notes",
	"avatar":       "Photo",
}

// validationMessages renders a service-side ValidationError in field order.
func validationMessages(verr *domain.ValidationError) []string {
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		label, ok := fieldLabels[k]
		if !ok {
			label = strings.ReplaceAll(k, "_", " ")
		}
		out = append(out, fmt.Sprintf("%s %s.", label, verr.Fields[k]))
	}
	return out
}
