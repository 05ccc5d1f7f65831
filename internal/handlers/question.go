package handlers

import (
	"net/http"

	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	surveyService *services.SurveyService
}

func NewQuestionHandler(surveyService *services.SurveyService) *QuestionHandler {
	return &QuestionHandler{surveyService: surveyService}
}

// QuestionEditResponse returns the stored question with the flow report
// computed right after the edit.
type QuestionEditResponse struct {
	Question *Question   `json:"question"`
	Flow     flow.Report `json:"flow"`
}

type ReorderRequest struct {
	Questions []services.QuestionOrder `json:"questions" binding:"required,min=1"`
}

// CreateQuestion godoc
// @Summary      Add a question to a survey
// @Description  On an active survey the question is refused when it leaves the flow invalid
// @Tags         questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Param        request body services.QuestionInput true "Question data"
// @Success      201 {object} QuestionEditResponse
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/surveys/{id}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	var req services.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	question, report, err := h.surveyService.CreateQuestion(c.Request.Context(), surveyID, authorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, QuestionEditResponse{Question: question, Flow: report})
}

// UpdateQuestion godoc
// @Summary      Update a question
// @Description  Replaces text, kind, bounds and options. Options are recreated, so per-option steps must be sent again.
// @Tags         questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Question ID"
// @Param        request body services.QuestionInput true "Question data"
// @Success      200 {object} QuestionEditResponse
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	questionID, ok := parseID(c, "id", "question")
	if !ok {
		return
	}

	var req services.QuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	question, report, err := h.surveyService.UpdateQuestion(c.Request.Context(), questionID, authorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuestionEditResponse{Question: question, Flow: report})
}

// DeleteQuestion godoc
// @Summary      Delete a question
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Question ID"
// @Success      200 {object} flow.Report
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID, ok := parseID(c, "id", "question")
	if !ok {
		return
	}

	report, err := h.surveyService.DeleteQuestion(c.Request.Context(), questionID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ReorderQuestions godoc
// @Summary      Reorder questions
// @Description  Set order_num per question. Sequential fallback follows the new order.
// @Tags         questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Param        request body ReorderRequest true "New order"
// @Success      200 {object} flow.Report
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/surveys/{id}/reorder [put]
func (h *QuestionHandler) ReorderQuestions(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	report, err := h.surveyService.ReorderQuestions(c.Request.Context(), surveyID, authorID(c), req.Questions)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateQuestionFlow godoc
// @Summary      Configure question flow
// @Description  Set default_next for non-branching questions or next per option for branching ones. null clears a step.
// @Tags         flow
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Question ID"
// @Param        request body services.FlowInput true "Flow steps"
// @Success      200 {object} QuestionEditResponse
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} FlowReportResponse
// @Router       /api/v1/questions/{id}/flow [put]
func (h *QuestionHandler) UpdateQuestionFlow(c *gin.Context) {
	questionID, ok := parseID(c, "id", "question")
	if !ok {
		return
	}

	var req services.FlowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	question, report, err := h.surveyService.UpdateQuestionFlow(c.Request.Context(), questionID, authorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuestionEditResponse{Question: question, Flow: report})
}
