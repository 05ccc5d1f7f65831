package handlers

import (
	"net/http"

	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SurveyHandler struct {
	surveyService *services.SurveyService
	flowService   *services.FlowService
}

func NewSurveyHandler(surveyService *services.SurveyService, flowService *services.FlowService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService, flowService: flowService}
}

// ListSurveys godoc
// @Summary      List surveys
// @Description  Get all surveys of the authenticated author
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Survey
// @Failure      401 {object} ErrorResponse
// @Router       /api/v1/surveys [get]
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	surveys, err := h.surveyService.ListSurveys(authorID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, surveys)
}

// CreateSurvey godoc
// @Summary      Create a survey
// @Description  Create an inactive survey with a fresh 6-digit code
// @Tags         surveys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body services.SurveyInput true "Survey data"
// @Success      201 {object} Survey
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/surveys [post]
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	var req services.SurveyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	survey, err := h.surveyService.CreateSurvey(authorID(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, survey)
}

// GetSurvey godoc
// @Summary      Get a survey
// @Description  Get a survey with its questions, options and flow steps
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {object} Survey
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id} [get]
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	survey, err := h.surveyService.GetSurvey(surveyID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// UpdateSurvey godoc
// @Summary      Update a survey
// @Tags         surveys
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Param        request body services.SurveyInput true "Survey data"
// @Success      200 {object} Survey
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id} [put]
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	var req services.SurveyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	survey, err := h.surveyService.UpdateSurvey(surveyID, authorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// DeleteSurvey godoc
// @Summary      Delete a survey
// @Description  Delete a survey with its questions and responses
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id} [delete]
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	if err := h.surveyService.DeleteSurvey(c.Request.Context(), surveyID, authorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "survey deleted"})
}

// ValidateFlow godoc
// @Summary      Validate the survey flow
// @Description  Check the flow for cycles, missing targets and questions that cannot reach the end
// @Tags         flow
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {object} flow.Report
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id}/flow/validate [get]
func (h *SurveyHandler) ValidateFlow(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	if _, err := h.surveyService.GetSurvey(surveyID, authorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}

	report, err := h.flowService.ValidateSurveyFlow(c.Request.Context(), surveyID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ActivateSurvey godoc
// @Summary      Activate a survey
// @Description  Put the survey live. Refused with the validation report when the flow is invalid.
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {object} Survey
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/surveys/{id}/activate [post]
func (h *SurveyHandler) ActivateSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	survey, _, err := h.surveyService.Activate(c.Request.Context(), surveyID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// DeactivateSurvey godoc
// @Summary      Deactivate a survey
// @Tags         surveys
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {object} Survey
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id}/deactivate [post]
func (h *SurveyHandler) DeactivateSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	survey, err := h.surveyService.Deactivate(surveyID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// GetSurveyByCode godoc
// @Summary      Find an active survey by code
// @Description  Internal endpoint for the bot service
// @Tags         internal
// @Produce      json
// @Param        X-Bot-API-Key header string true "Bot API Key"
// @Param        code path string true "6-digit survey code"
// @Success      200 {object} Survey
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/internal/surveys/code/{code} [get]
func (h *SurveyHandler) GetSurveyByCode(c *gin.Context) {
	survey, err := h.surveyService.GetActiveSurveyByCode(c.Param("code"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}
