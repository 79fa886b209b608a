package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errBearerNotSet = errors.New("API_BEARER_TOKEN is not configured on the server")
	errInvalidToken = errors.New("invalid authentication token")
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
