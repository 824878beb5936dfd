package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// httpError carries the status and user-facing detail for a failed request.
// Err keeps the underlying cause for logs and errors.Is checks; it is never
// rendered.
type httpError struct {
	Status int
	Detail string
	Err    error
}

func (e *httpError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *httpError) Unwrap() error {
	return e.Err
}

func badRequest(detail string, cause error) *httpError {
	return &httpError{Status: http.StatusBadRequest, Detail: detail, Err: cause}
}

func internalError(detail string, cause error) *httpError {
	return &httpError{Status: http.StatusInternalServerError, Detail: detail, Err: cause}
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// writeHTTPError renders err and logs the cause of server-side failures.
// Errors that are not *httpError become a generic 500.
func (a *App) writeHTTPError(c *gin.Context, err error) {
	var httpErr *httpError
	if !errors.As(err, &httpErr) {
		httpErr = internalError("Internal server error", err)
	}
	if httpErr.Status >= http.StatusInternalServerError {
		a.log.Error("request failed",
			"path", c.FullPath(),
			"status", httpErr.Status,
			"error", httpErr.Err,
		)
	}
	writeError(c, httpErr.Status, httpErr.Detail)
}
