package configmanagement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/datastore"
)

const maxUploadSize = 50 << 20 // 50 MB

// removeOrphan deletes an uploaded object whose metadata could not be stored.
func (h *Handlers) removeOrphan(objectName string) {
	if err := h.Store.DeleteFile(context.Background(), objectName); err != nil {
		log.Printf("Failed to delete orphaned object '%s': %v", objectName, err)
	}
}

// CreateAudioTestCaseHandler stores an uploaded recording and its reference
// transcript. It expects multipart/form-data with audio_file, name and
// reference_text, plus optional language_code and description.
func (h *Handlers) CreateAudioTestCaseHandler(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse multipart form: %v. Max size: %d MB", err, maxUploadSize>>20)})
		return
	}

	tc := datastore.AudioTestCase{
		Name:          c.PostForm("name"),
		LanguageCode:  c.PostForm("language_code"),
		ReferenceText: c.PostForm("reference_text"),
		Description:   c.PostForm("description"),
	}
	if tc.Name == "" || tc.ReferenceText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and reference_text are required fields"})
		return
	}

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio_file is required"})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to get audio_file: %v", err)})
		}
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Audio file size exceeds limit of %d MB", maxUploadSize>>20)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to open uploaded file: %v", err)})
		return
	}
	defer file.Close()

	objectName, err := h.Store.UploadFile(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("Error uploading file to object storage: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload audio file: %v", err)})
		return
	}
	tc.AudioObjectKey = objectName

	id, err := datastore.CreateAudioTestCase(&tc)
	if err != nil {
		h.removeOrphan(objectName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create audio test case: %v", err)})
		return
	}
	tc.ID = id
	c.JSON(http.StatusCreated, tc)
}

// GetAudioTestCaseHandler retrieves a test case by ID.
func (h *Handlers) GetAudioTestCaseHandler(c *gin.Context) {
	id, ok := parseID(c, "test case")
	if !ok {
		return
	}
	tc, err := datastore.GetAudioTestCase(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve test case: %v", err)})
		}
		return
	}
	c.JSON(http.StatusOK, tc)
}

// GetAudioTestCaseURLHandler returns a time-limited download URL for the
// test case recording. ?expiry= accepts a Go duration.
func (h *Handlers) GetAudioTestCaseURLHandler(c *gin.Context) {
	id, ok := parseID(c, "test case")
	if !ok {
		return
	}
	var expiry time.Duration
	if raw := c.Query("expiry"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expiry must be a positive duration such as 30m"})
			return
		}
		expiry = d
	}

	tc, err := datastore.GetAudioTestCase(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve test case: %v", err)})
		}
		return
	}
	url, err := h.Store.PresignedURL(c.Request.Context(), tc.AudioObjectKey, expiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to sign audio URL: %v", err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListAudioTestCasesHandler lists test cases, optionally filtered by ?language_code=.
func (h *Handlers) ListAudioTestCasesHandler(c *gin.Context) {
	tcs, err := datastore.ListAudioTestCases(c.Query("language_code"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list test cases: %v", err)})
		return
	}
	c.JSON(http.StatusOK, tcs)
}

// UpdateAudioTestCaseHandler edits test case metadata. The recording itself
// cannot be replaced.
func (h *Handlers) UpdateAudioTestCaseHandler(c *gin.Context) {
	id, ok := parseID(c, "test case")
	if !ok {
		return
	}

	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	if _, ok := updateData["audio_object_key"]; ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio_object_key cannot be updated via this endpoint"})
		return
	}
	delete(updateData, "id")
	delete(updateData, "created_at")
	delete(updateData, "updated_at")

	fields := make(map[string]string, len(updateData))
	for k, v := range updateData {
		s, isString := v.(string)
		if !isString {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("field '%s' must be a string", k)})
			return
		}
		fields[k] = s
	}

	updated, err := datastore.UpdateAudioTestCase(id, fields)
	if err != nil {
		switch {
		case errors.Is(err, datastore.ErrNoUpdatableFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, datastore.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update test case: %v", err)})
		}
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteAudioTestCaseHandler deletes a test case and then its recording.
// A failed object removal is reported but does not undo the delete.
func (h *Handlers) DeleteAudioTestCaseHandler(c *gin.Context) {
	id, ok := parseID(c, "test case")
	if !ok {
		return
	}

	tc, err := datastore.GetAudioTestCase(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Test case with ID %d not found", id)})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve test case before deletion: %v", err)})
		}
		return
	}

	if err := datastore.DeleteAudioTestCase(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to delete test case: %v", err)})
		return
	}

	if err := h.Store.DeleteFile(c.Request.Context(), tc.AudioObjectKey); err != nil {
		log.Printf("Failed to delete audio object '%s' for test case ID %d: %v. DB record was deleted.", tc.AudioObjectKey, id, err)
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Test case deleted, but failed to remove audio object '%s': %v", tc.AudioObjectKey, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test case and associated audio deleted successfully"})
}
