package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"survey-bot-backend/internal/flow"
	"survey-bot-backend/internal/surveydoc"

	"github.com/gin-gonic/gin"
)

const maxImportSize = 1 << 20

type ImportResponse struct {
	Survey *Survey     `json:"survey"`
	Flow   flow.Report `json:"flow"`
}

// ExportSurvey godoc
// @Summary      Export a survey
// @Description  Download the survey as a portable document. Steps reference 1-based question positions.
// @Tags         surveys
// @Produce      json
// @Produce      application/x-yaml
// @Security     BearerAuth
// @Param        id path int true "Survey ID"
// @Param        format query string false "json (default) or yaml"
// @Success      200 {object} surveydoc.Document
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/surveys/{id}/export [get]
func (h *SurveyHandler) ExportSurvey(c *gin.Context) {
	surveyID, ok := parseID(c, "id", "survey")
	if !ok {
		return
	}

	doc, err := h.surveyService.ExportSurvey(surveyID, authorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	format := surveydoc.FormatJSON
	contentType := "application/json; charset=utf-8"
	if strings.EqualFold(c.Query("format"), "yaml") {
		format = surveydoc.FormatYAML
		contentType = "application/x-yaml; charset=utf-8"
	}

	data, err := surveydoc.Marshal(doc, format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	filename := strings.ReplaceAll(doc.Title, " ", "_")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", filename, format))
	c.Data(http.StatusOK, contentType, data)
}

// ImportSurvey godoc
// @Summary      Import a survey
// @Description  Create a new inactive survey from a JSON or YAML document
// @Tags         surveys
// @Accept       json
// @Accept       application/x-yaml
// @Produce      json
// @Security     BearerAuth
// @Param        request body surveydoc.Document true "Survey document"
// @Success      201 {object} ImportResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/surveys/import [post]
func (h *SurveyHandler) ImportSurvey(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	format := surveydoc.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") || strings.EqualFold(c.Query("format"), "yaml") {
		format = surveydoc.FormatYAML
	}

	doc, err := surveydoc.Parse(body, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	survey, report, err := h.surveyService.ImportSurvey(c.Request.Context(), authorID(c), doc)
	if err != nil {
		if errors.Is(err, surveydoc.ErrInvalidDocument) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ImportResponse{Survey: survey, Flow: report})
}
