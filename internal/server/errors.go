package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jywlabs/scriptwiz/internal/llm"
	"github.com/jywlabs/scriptwiz/internal/media"
	"github.com/jywlabs/scriptwiz/internal/pipeline"
	"github.com/jywlabs/scriptwiz/internal/prompt"
	"github.com/jywlabs/scriptwiz/internal/storage"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Missing string `json:"missing,omitempty"`
	Command string `json:"command,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		prereq      *pipeline.PrerequisiteError
		input       *pipeline.InputError
		tmpl        *prompt.TemplateError
		missing     *prompt.ConfigurationMissingError
		unsupported *media.UnsupportedError
		llmErr      *llm.Error
	)

	switch {
	case errors.As(err, &prereq):
		return http.StatusConflict, errorResponse{
			Error:   err.Error(),
			Missing: string(prereq.Missing),
			Command: prereq.Command(),
		}
	case errors.As(err, &input):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Field: input.Field}
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "image"}
	case errors.As(err, &tmpl):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: "template"}
	case errors.As(err, &missing):
		return http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "configuration"}
	case errors.As(err, &llmErr):
		status := http.StatusBadGateway
		if llmErr.Kind == llm.KindConstruction {
			status = http.StatusBadRequest
		}
		return status, errorResponse{Error: llm.UserMessage(err), Kind: string(llmErr.Kind)}
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: err.Error()}
}
