package configmanagement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/coreengine/vendoradapters"
	"speech-eval-toolkit/internal/datastore"
)

const redactedKey = "********"

// redact hides the API key in responses.
func redact(p *datastore.RecognizerProfile) *datastore.RecognizerProfile {
	out := *p
	if out.APIKey != "" {
		out.APIKey = redactedKey
	}
	return &out
}

// validateProfile checks required fields and normalises the engine name.
func validateProfile(p *datastore.RecognizerProfile) string {
	p.Engine = strings.ToLower(strings.TrimSpace(p.Engine))
	if p.Name == "" || p.Engine == "" {
		return "name and engine are required fields"
	}
	switch p.Engine {
	case vendoradapters.EngineMicrosoft, vendoradapters.EngineGoogle, vendoradapters.EngineMock:
	default:
		return "engine must be one of microsoft, google or mock"
	}
	if len(p.Options) > 0 && !json.Valid(p.Options) {
		return "options is not valid JSON"
	}
	return ""
}

// CreateRecognizerProfileHandler creates a recognizer profile.
func (h *Handlers) CreateRecognizerProfileHandler(c *gin.Context) {
	var p datastore.RecognizerProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if msg := validateProfile(&p); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	id, err := datastore.CreateRecognizerProfile(&p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recognizer profile: " + err.Error()})
		return
	}
	p.ID = id
	c.JSON(http.StatusCreated, redact(&p))
}

// GetRecognizerProfileHandler retrieves a recognizer profile by ID.
func (h *Handlers) GetRecognizerProfileHandler(c *gin.Context) {
	id, ok := parseID(c, "recognizer profile")
	if !ok {
		return
	}
	p, err := datastore.GetRecognizerProfile(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recognizer profile: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, redact(p))
}

// UpdateRecognizerProfileHandler replaces a recognizer profile. An api_key
// left empty or sent back redacted keeps the stored key.
func (h *Handlers) UpdateRecognizerProfileHandler(c *gin.Context) {
	id, ok := parseID(c, "recognizer profile")
	if !ok {
		return
	}
	var p datastore.RecognizerProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	p.ID = id
	if msg := validateProfile(&p); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	existing, err := datastore.GetRecognizerProfile(id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recognizer profile: " + err.Error()})
		}
		return
	}
	if p.APIKey == "" || p.APIKey == redactedKey {
		p.APIKey = existing.APIKey
	}

	if err := datastore.UpdateRecognizerProfile(&p); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recognizer profile: " + err.Error()})
		}
		return
	}

	updated, err := datastore.GetRecognizerProfile(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve updated recognizer profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, redact(updated))
}

// DeleteRecognizerProfileHandler deletes a recognizer profile by ID.
func (h *Handlers) DeleteRecognizerProfileHandler(c *gin.Context) {
	id, ok := parseID(c, "recognizer profile")
	if !ok {
		return
	}
	if err := datastore.DeleteRecognizerProfile(id); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recognizer profile: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recognizer profile deleted successfully"})
}

// ListRecognizerProfilesHandler lists profiles, optionally filtered by ?engine=.
func (h *Handlers) ListRecognizerProfilesHandler(c *gin.Context) {
	profiles, err := datastore.ListRecognizerProfiles(strings.ToLower(c.Query("engine")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list recognizer profiles: " + err.Error()})
		return
	}
	out := make([]*datastore.RecognizerProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, redact(p))
	}
	c.JSON(http.StatusOK, out)
}
