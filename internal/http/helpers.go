package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/security"
)

// ErrorResponse is the error body of every JSON failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondPageError is respondInternalError for HTML routes: the error is
// logged and the client gets a short plain-text message.
func respondPageError(c *gin.Context, err error, context, message string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.String(http.StatusInternalServerError, message)
}

func parseUintParam(c *gin.Context, paramName string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	return uint(id), err
}

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := parseUintParam(c, paramName)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return id, true
}

// parseBookID is parseIDParam for HTML routes.
func parseBookID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid book ID")
		return 0, false
	}
	return id, true
}

// pageData adds the values every template expects to data.
func pageData(c *gin.Context, flash Flasher, data gin.H) gin.H {
	data["CSRFToken"] = security.GetCSRFToken(c)
	data["CSRFField"] = security.CSRFFieldName
	data["ReadOnly"] = security.IsReadOnly(c)
	if flash != nil {
		data["Flash"] = flash.PopFlash(c.Request.Context())
	}
	return data
}
