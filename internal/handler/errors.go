package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/paper"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
)

// failFromError maps a service error onto the response envelope.
// Unexpected errors are logged with the request id.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, paper.ErrUnknownQuestionType):
		log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Unrenderable paper")
		response.Fail(c, http.StatusInternalServerError, response.ErrUnrenderable)
	case errors.Is(err, service.ErrStorageUnavailable):
		log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Storage unavailable")
		response.Fail(c, http.StatusInternalServerError, response.ErrStorageUnavailable)
	default:
		log.Error().Err(err).Str("request_id", response.RequestID(c)).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseID reads a positive integer id.
func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
