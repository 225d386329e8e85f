package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/kolna/incident_analysis_system/internal/classifier"
	"github.com/kolna/incident_analysis_system/internal/config"
	"github.com/kolna/incident_analysis_system/internal/service"
)

type Handler struct {
	analysisService service.AnalysisService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(analysisService service.AnalysisService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		analysisService: analysisService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// @Summary Analyze an incident report
// @Description Resolve location, classify severity and correlate duplicates for a free-text incident report. Requires API key.
// @Tags Analysis
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param report body AnalyzeRequest true "Incident report"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Classifier unavailable"
// @Failure 503 {object} map[string]string "Storage unavailable"
// @Router /analyze [post]
func (h *Handler) analyze(c *gin.Context) {
	var input AnalyzeRequest
	log := h.logger.WithField("method", "analyze").WithField("request_id", GetRequestID(c))

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Кривая временная метка отклоняется до какой-либо работы
	req, err := DTOToAnalysisRequest(input)
	if err != nil {
		log.WithError(err).Warn("Invalid timestamp in request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp"})
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), req)
	if err != nil {
		log.WithError(err).Error("Failed to analyze report")
		switch {
		case errors.Is(err, classifier.ErrUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "classifier unavailable"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, ResultToAnalyzeResponse(result))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of stored incidents, newest first. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	incidents, err := h.analysisService.ListIncidents(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.analysisService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get application health status
// @Description Get health status: dataset record count and classifier key presence
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} map[string]string "Storage unavailable"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	status, err := h.analysisService.Health(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:         status.Status,
		DatasetRecords: status.DatasetRecords,
		APIKeySet:      status.APIKeySet,
	})
}
