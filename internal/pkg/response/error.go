package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtly/scheduler/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Kind    apperror.Kind `json:"kind,omitempty"`
	Details any           `json:"details,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: appErr.Message, Kind: appErr.Kind}
		var d apperror.Detailer
		if errors.As(err, &d) {
			resp.Error = err.Error()
			resp.Details = d.ErrorDetails()
		}
		c.JSON(appErr.Code, resp)
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: apperror.KindInternal})
}

// BadRequest sends a 400 for binding failures that never reached the service layer.
func BadRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: message, Kind: apperror.KindValidation}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
