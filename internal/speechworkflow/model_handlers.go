package speechworkflow

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/customspeech"
)

// CreateModelRequest is the body of POST /admin/models.
type CreateModelRequest struct {
	ProjectID   string   `json:"project_id"`
	BaseModelID string   `json:"base_model_id" binding:"required"`
	DatasetIDs  []string `json:"dataset_ids" binding:"required,min=1"`
	DisplayName string   `json:"display_name" binding:"required"`
	Description string   `json:"description"`
	Locale      string   `json:"locale"`
}

// CreateModelHandler starts training a custom model.
func (h *Handlers) CreateModelHandler(c *gin.Context) {
	var req CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	wait, ok := wantWait(c)
	if !ok {
		return
	}
	id, err := h.Client.CreateModel(c.Request.Context(), customspeech.ModelSpec{
		ProjectID:   req.ProjectID,
		BaseModelID: req.BaseModelID,
		DatasetIDs:  req.DatasetIDs,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Locale:      h.locale(req.Locale),
	})
	if err != nil {
		respondPlatformError(c, "create model", err)
		return
	}
	h.respondCreated(c, "model", id, wait, h.Client.ModelStatusFunc(id))
}

// GetModelStatusHandler returns the training status of a model.
func (h *Handlers) GetModelStatusHandler(c *gin.Context) {
	respondStatus(c, "model", func() (string, error) {
		return h.Client.ModelStatus(c.Request.Context(), c.Param("id"))
	})
}

// CreateEvaluationRequest is the body of POST /admin/evaluations. Model IDs
// prefixed with "base/" refer to base models.
type CreateEvaluationRequest struct {
	ProjectID   string `json:"project_id"`
	DatasetID   string `json:"dataset_id" binding:"required"`
	Model1ID    string `json:"model1_id" binding:"required"`
	Model2ID    string `json:"model2_id" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// CreateEvaluationHandler starts a platform evaluation comparing two models.
func (h *Handlers) CreateEvaluationHandler(c *gin.Context) {
	var req CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	wait, ok := wantWait(c)
	if !ok {
		return
	}
	id, err := h.Client.CreateEvaluation(c.Request.Context(), customspeech.EvaluationSpec{
		ProjectID:   req.ProjectID,
		DatasetID:   req.DatasetID,
		Model1ID:    req.Model1ID,
		Model2ID:    req.Model2ID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Locale:      h.locale(req.Locale),
	})
	if err != nil {
		respondPlatformError(c, "create evaluation", err)
		return
	}
	h.respondCreated(c, "evaluation", id, wait, h.Client.EvaluationStatusFunc(id))
}

// GetEvaluationHandler returns an evaluation with its aggregate metrics.
func (h *Handlers) GetEvaluationHandler(c *gin.Context) {
	ev, err := h.Client.Evaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPlatformError(c, "get evaluation", err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// GetEvaluationStatusHandler returns the status of an evaluation.
func (h *Handlers) GetEvaluationStatusHandler(c *gin.Context) {
	respondStatus(c, "evaluation", func() (string, error) {
		return h.Client.EvaluationStatus(c.Request.Context(), c.Param("id"))
	})
}

// CreateEndpointRequest is the body of POST /admin/endpoints.
type CreateEndpointRequest struct {
	ProjectID   string `json:"project_id"`
	ModelID     string `json:"model_id" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// CreateEndpointHandler deploys a model.
func (h *Handlers) CreateEndpointHandler(c *gin.Context) {
	var req CreateEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	wait, ok := wantWait(c)
	if !ok {
		return
	}
	id, err := h.Client.CreateEndpoint(c.Request.Context(), customspeech.EndpointSpec{
		ProjectID:   req.ProjectID,
		ModelID:     req.ModelID,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Locale:      h.locale(req.Locale),
	})
	if err != nil {
		respondPlatformError(c, "create endpoint", err)
		return
	}
	h.respondCreated(c, "endpoint", id, wait, h.Client.EndpointStatusFunc(id))
}

// GetEndpointStatusHandler returns the deployment status of an endpoint.
func (h *Handlers) GetEndpointStatusHandler(c *gin.Context) {
	respondStatus(c, "endpoint", func() (string, error) {
		return h.Client.EndpointStatus(c.Request.Context(), c.Param("id"))
	})
}

// DeleteEndpointHandler removes an endpoint.
func (h *Handlers) DeleteEndpointHandler(c *gin.Context) {
	if err := h.Client.DeleteEndpoint(c.Request.Context(), c.Param("id")); err != nil {
		respondPlatformError(c, "delete endpoint", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Endpoint deleted successfully"})
}
