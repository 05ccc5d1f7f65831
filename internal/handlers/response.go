package handlers

import (
	"net/http"
	"time"

	"survey-bot-backend/internal/answers"
	"survey-bot-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ResponseHandler struct {
	responseService *services.ResponseService
}

func NewResponseHandler(responseService *services.ResponseService) *ResponseHandler {
	return &ResponseHandler{responseService: responseService}
}

type StartResponseRequest struct {
	RespondentID uint `json:"respondent_id" example:"12"`
}

type SubmitAnswerRequest struct {
	QuestionID uint          `json:"question_id" binding:"required" example:"3"`
	Answer     answers.Input `json:"answer"`
}

type AnswerDetail struct {
	QuestionID uint          `json:"question_id"`
	Value      answers.Value `json:"value" swaggertype:"object"`
	Display    string        `json:"display"`
	AnsweredAt time.Time     `json:"answered_at"`
}

type ResponseDetail struct {
	*Response
	Answers []AnswerDetail `json:"answers"`
}

// StartResponse godoc
// @Summary      Start a response
// @Description  The bot starts (or resumes) a respondent's response to an active survey. An author token starts a preview, allowed on inactive surveys.
// @Tags         responses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Bot-API-Key header string false "Bot API Key"
// @Param        id path int true "Survey ID"
// @Param        request body StartResponseRequest false "Respondent"
// @Success      201 {object} services.StartResult
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/surveys/{id}/responses [post]
func (h *ResponseHandler) StartResponse(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	var (
		result *services.StartResult
		err    error
	)
	if isBotCall(c) {
		var req StartResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RespondentID == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "respondent_id is required"})
			return
		}
		result, err = h.responseService.StartResponse(c.Request.Context(), surveyID, req.RespondentID)
	} else {
		result, err = h.responseService.StartPreview(c.Request.Context(), surveyID, authorID(c))
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// SubmitAnswer godoc
// @Summary      Submit an answer
// @Description  Validates the answer, resolves the next question and records progress. Validation failures return kind "validation" and can be retried; flow failures return kind "flow".
// @Tags         responses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Bot-API-Key header string false "Bot API Key"
// @Param        id path int true "Response ID"
// @Param        request body SubmitAnswerRequest true "Answer"
// @Success      200 {object} services.SubmitResult
// @Failure      400 {object} KindErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} KindErrorResponse
// @Router       /api/v1/responses/{id}/answers [post]
func (h *ResponseHandler) SubmitAnswer(c *gin.Context) {
	responseID, ok := parseID(c, "id", "response")
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if !isBotCall(c) {
		if _, err := h.responseService.GetResponse(responseID, authorID(c)); err != nil {
			writeServiceError(c, err)
			return
		}
	}

	result, err := h.responseService.SubmitAnswer(c.Request.Context(), responseID, req.QuestionID, req.Answer)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CurrentQuestion godoc
// @Summary      Get the current question of a response
// @Tags         responses
// @Produce      json
// @Security     BearerAuth
// @Param        X-Bot-API-Key header string false "Bot API Key"
// @Param        id path int true "Response ID"
// @Success      200 {object} Question
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/responses/{id}/current [get]
func (h *ResponseHandler) CurrentQuestion(c *gin.Context) {
	responseID, ok := parseID(c, "id", "response")
	if !ok {
		return
	}

	if !isBotCall(c) {
		if _, err := h.responseService.GetResponse(responseID, authorID(c)); err != nil {
			writeServiceError(c, err)
			return
		}
	}

	question, err := h.responseService.CurrentQuestion(responseID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if question == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListResponses godoc
// @Summary      List responses of a survey
// @Tags         responses
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Success      200 {array} services.ResponseSummary
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id}/responses [get]
func (h *ResponseHandler) ListResponses(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	summaries, err := h.responseService.ListResponses(surveyID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetResponse godoc
// @Summary      Get a response with its answers
// @Tags         responses
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Response ID"
// @Success      200 {object} ResponseDetail
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/responses/{id} [get]
func (h *ResponseHandler) GetResponse(c *gin.Context) {
	responseID, ok := parseID(c, "id", "response")
	if !ok {
		return
	}

	resp, err := h.responseService.GetResponse(responseID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	values, err := services.DecodeAnswers(resp.Answers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	detail := ResponseDetail{Response: resp, Answers: make([]AnswerDetail, 0, len(resp.Answers))}
	for _, a := range resp.Answers {
		v := values[a.QuestionID]
		detail.Answers = append(detail.Answers, AnswerDetail{
			QuestionID: a.QuestionID,
			Value:      v,
			Display:    v.Display(),
			AnsweredAt: a.AnsweredAt,
		})
	}

	c.JSON(http.StatusOK, detail)
}
