// Package speechworkflow exposes the custom-model workflow of the speech
// platform over the admin API: projects, datasets, models, evaluations and
// endpoints. Each handler issues the matching platform call and, when asked
// with ?wait=true, polls until the entity settles.
package speechworkflow

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/customspeech"
	"speech-eval-toolkit/internal/objectstore"
)

// Handlers serves the workflow routes.
type Handlers struct {
	Client       *customspeech.Client
	Store        objectstore.Store
	URLExpiry    time.Duration // lifetime of signed dataset URLs
	PollInterval time.Duration
	Locale       string // default locale for new entities
}

// NewHandlers returns handlers for client. A nil client makes every route
// answer 503.
func NewHandlers(client *customspeech.Client, store objectstore.Store, urlExpiry, pollInterval time.Duration, locale string) *Handlers {
	return &Handlers{
		Client:       client,
		Store:        store,
		URLExpiry:    urlExpiry,
		PollInterval: pollInterval,
		Locale:       locale,
	}
}

// RequireClient rejects requests while the speech platform is not configured.
func (h *Handlers) RequireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Client == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Speech platform is not configured"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handlers) locale(requested string) string {
	if requested != "" {
		return requested
	}
	return h.Locale
}

// respondPlatformError maps a platform failure to a response. Platform 404s
// pass through; other platform errors are reported as 502.
func respondPlatformError(c *gin.Context, action string, err error) {
	var apiErr *customspeech.APIError
	switch {
	case customspeech.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Failed to %s: %v", action, err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to %s: %v", action, err)})
	}
}

// wantWait reads the ?wait= flag.
func wantWait(c *gin.Context) (bool, bool) {
	raw := c.Query("wait")
	if raw == "" {
		return false, true
	}
	wait, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wait must be a boolean"})
		return false, false
	}
	return wait, true
}

// respondCreated answers 201 for a new entity. With wait it first polls
// fetch until the entity succeeds or fails; a failed wait still returns the
// ID so the caller can inspect it.
func (h *Handlers) respondCreated(c *gin.Context, kind, id string, wait bool, fetch customspeech.StatusFunc) {
	if !wait {
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	log.Printf("Waiting for %s %s to finish.", kind, id)
	if err := customspeech.WaitForStatus(c.Request.Context(), fetch, h.PollInterval); err != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"id":      id,
			"message": fmt.Sprintf("%s created but did not succeed", kind),
			"detail":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "status": customspeech.StatusSucceeded})
}

// respondStatus answers with the current status of one entity.
func respondStatus(c *gin.Context, kind string, fetch func() (string, error)) {
	status, err := fetch()
	if err != nil {
		respondPlatformError(c, "get "+kind+" status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": status})
}
