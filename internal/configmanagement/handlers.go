// Package configmanagement serves the admin CRUD routes for recognizer
// profiles and audio test cases.
package configmanagement

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"speech-eval-toolkit/internal/objectstore"
)

// Handlers carries the blob store test case audio is kept in.
type Handlers struct {
	Store objectstore.Store
}

// NewHandlers returns handlers storing audio in store.
func NewHandlers(store objectstore.Store) *Handlers {
	return &Handlers{Store: store}
}

func parseID(c *gin.Context, what string) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return 0, false
	}
	return id, true
}
