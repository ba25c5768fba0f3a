package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/zkkeyless/go-keyless-prover/types"
)

// ApiErrorf aborts the request with a tagged {"Error":{"message":...}} body
func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) types.ErrorResponse {
	ar := types.ErrorResponse{
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// NotFound handles unmatched routes
func NotFound(c *gin.Context) {
	ApiErrorf(c, http.StatusNotFound, "Invalid route")
}

// statusForError maps the pipeline classification of err to an HTTP status and a client message
func statusForError(err error) (int, string) {
	switch types.KindOf(err) {
	case types.KindMalformedInput:
		return http.StatusBadRequest, fmt.Sprintf("malformed input: %v", err)
	case types.KindPolicyRejection:
		return http.StatusBadRequest, fmt.Sprintf("request rejected at %s", types.StepOf(err))
	case types.KindUpstreamUnavailable:
		return http.StatusBadRequest, fmt.Sprintf("upstream unavailable: %v", err)
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "oneof":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be one of %s", err.Field(), err.Param()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}
