package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/middleware"
	"survey-bot-backend/internal/models"
	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// KindErrorResponse tells a client whether to re-prompt (validation) or to
// treat the failure as a hard error (flow).
type KindErrorResponse struct {
	Error string `json:"error" example:"Please choose a rating from 1 to 5."`
	Kind  string `json:"kind" example:"validation"`
}

type FlowReportResponse struct {
	Error  string      `json:"error" example:"survey flow is invalid"`
	Report flow.Report `json:"report"`
}

// Type aliases so swag can resolve models in annotations.
type Survey = models.Survey
type Question = models.Question
type Response = models.Response

const (
	errorKindValidation = "validation"
	errorKindFlow       = "flow"
)

func authorID(c *gin.Context) uint {
	return c.GetUint(middleware.AuthorIDKey)
}

func isBotCall(c *gin.Context) bool {
	return c.GetBool(middleware.BotCallKey)
}

func parseID(c *gin.Context, param, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + what + " id"})
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps service errors to status codes. Handlers fall back
// to it after checking their own special cases.
func writeServiceError(c *gin.Context, err error) {
	var fve *services.FlowValidationError
	switch {
	case errors.As(err, &fve):
		c.JSON(http.StatusUnprocessableEntity, FlowReportResponse{Error: err.Error(), Report: fve.Report})
	case answers.IsValidationError(err):
		c.JSON(http.StatusBadRequest, KindErrorResponse{Error: answers.UserMessage(err), Kind: errorKindValidation})
	case services.IsFlowRuntimeError(err):
		c.JSON(http.StatusConflict, KindErrorResponse{Error: err.Error(), Kind: errorKindFlow})
	case errors.Is(err, services.ErrSurveyNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrResponseNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrSurveyInactive),
		errors.Is(err, services.ErrAlreadyResponded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidQuestion),
		errors.Is(err, flow.ErrInvalidStep),
		errors.Is(err, flow.ErrInvalidNode),
		errors.Is(err, flow.ErrEmptySurvey):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
