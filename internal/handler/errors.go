package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prperemyshlev/platform-services/internal/apperror"
	"github.com/prperemyshlev/platform-services/internal/dto"
)

var registerTagNames sync.Once

// UseJSONFieldNames makes binding errors report json field names instead of Go field names
func UseJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// respondError writes err as an ErrorResponse. Errors outside the taxonomy
// become a generic ServiceError without leaking their text.
func respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Service(apperror.Title(apperror.KindService), err)
	}

	resp := dto.ErrorResponse{
		Error:   string(appErr.Kind),
		Message: appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		resp.Details = appErr.Fields
	}

	if appErr.Kind == apperror.KindService {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(apperror.HTTPStatus(appErr.Kind), resp)
}

// respondBindError converts a binding failure into a field-level ValidationError
func respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string][]string, len(validationErrs))
		for _, fe := range validationErrs {
			name := fe.Field()
			fields[name] = append(fields[name], fieldMessage(fe))
		}
		respondError(c, apperror.Validation("invalid request", fields))
		return
	}

	respondError(c, apperror.Validation("invalid request body", nil))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Missing data for required field."
	case "email":
		return "Not a valid email address."
	case "e164":
		return "Not a valid phone number."
	case "min":
		return fmt.Sprintf("Shorter than minimum length %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Longer than maximum length %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

// abortUnauthorized is used by middleware before any service is involved
func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error:   string(apperror.KindUnauthorized),
		Message: message,
	})
}
