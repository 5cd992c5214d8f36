package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	var details strings.Builder
	for _, fe := range verrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			details.WriteString(fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "max":
			details.WriteString(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return details.String()
}
