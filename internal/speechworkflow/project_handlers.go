package speechworkflow

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/objectstore"
)

const maxDatasetSize = 2 << 30 // 2 GB

// CreateProjectRequest is the body of POST /admin/projects.
type CreateProjectRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

// CreateProjectHandler creates a project.
func (h *Handlers) CreateProjectHandler(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	id, err := h.Client.CreateProject(c.Request.Context(), customspeech.ProjectSpec{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Locale:      h.locale(req.Locale),
	})
	if err != nil {
		respondPlatformError(c, "create project", err)
		return
	}
	log.Printf("Created project %s (%s).", id, req.DisplayName)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// DeleteProjectHandler deletes a project.
func (h *Handlers) DeleteProjectHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Client.DeleteProject(c.Request.Context(), id); err != nil {
		respondPlatformError(c, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// CreateDatasetHandler uploads a dataset archive to the blob store, signs a
// read URL for it and registers the dataset with the platform. It expects
// multipart/form-data with file and optional project_id, kind, display_name,
// description and locale. display_name defaults to the file name without
// extension.
func (h *Handlers) CreateDatasetHandler(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Object storage is not configured"})
		return
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse multipart form: %v", err)})
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxDatasetSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dataset file exceeds the 2 GB limit"})
		return
	}

	kind := c.DefaultPostForm("kind", customspeech.DatasetKindAcoustic)
	if kind != customspeech.DatasetKindAcoustic && kind != customspeech.DatasetKindLanguage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be Acoustic or Language"})
		return
	}
	displayName := c.PostForm("display_name")
	if displayName == "" {
		displayName = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to open uploaded file: %v", err)})
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = objectstore.ContentTypeFor(fileHeader.Filename)
	}
	objectName, err := h.Store.UploadFile(ctx, fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload dataset file: %v", err)})
		return
	}
	contentURL, err := h.Store.PresignedURL(ctx, objectName, h.URLExpiry)
	if err != nil {
		h.removeObject(objectName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to sign dataset URL: %v", err)})
		return
	}

	id, err := h.Client.CreateDataset(ctx, customspeech.DatasetSpec{
		ProjectID:   c.PostForm("project_id"),
		ContentURL:  contentURL,
		Kind:        kind,
		DisplayName: displayName,
		Description: c.PostForm("description"),
		Locale:      h.locale(c.PostForm("locale")),
	})
	if err != nil {
		h.removeObject(objectName)
		respondPlatformError(c, "create dataset", err)
		return
	}
	log.Printf("Created dataset %s from object '%s'.", id, objectName)
	c.JSON(http.StatusCreated, gin.H{"id": id, "object_key": objectName, "display_name": displayName})
}

func (h *Handlers) removeObject(objectName string) {
	if err := h.Store.DeleteFile(context.Background(), objectName); err != nil {
		log.Printf("Failed to delete orphaned dataset object '%s': %v", objectName, err)
	}
}

// GetDatasetContentURLHandler returns the content URL recorded for a dataset.
func (h *Handlers) GetDatasetContentURLHandler(c *gin.Context) {
	url, err := h.Client.DatasetContentURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPlatformError(c, "get dataset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "content_url": url})
}

// GetBaseModelHandler returns one base model.
func (h *Handlers) GetBaseModelHandler(c *gin.Context) {
	m, err := h.Client.BaseModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPlatformError(c, "get base model", err)
		return
	}
	c.JSON(http.StatusOK, m)
}
