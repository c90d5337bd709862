package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"github.com/suyash-sneo/scriptstore"
)

const (
	msgNotFound       = "Script not found"
	msgInternal       = "Internal server error"
	msgInvalidJSON    = "Invalid JSON body"
	maxRequestBodyLen = 4 << 20
)

type errorBody struct {
	Error string `json:"error"`
}

var errInvalidBody = errors.New("invalid json body")

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	defer r.Body.Close()
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		// An empty body decodes to the zero value; presence checks reject it.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeFailure maps a repository error onto a status code and body:
// validation 400, not found 404, malformed body 400, anything else 500.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *scriptstore.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, verr.Message)
	case errors.Is(err, errInvalidBody):
		writeError(w, r, http.StatusBadRequest, msgInvalidJSON)
	case errors.Is(err, scriptstore.ErrNotFound):
		writeError(w, r, http.StatusNotFound, msgNotFound)
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		scriptstore.F("id", requestID(r.Context())),
		scriptstore.F("method", r.Method),
		scriptstore.F("path", r.URL.Path),
		scriptstore.F("err", err),
	)
	msg := msgInternal
	if s.opts.ExposeErrors {
		msg += ": " + err.Error()
	}
	writeError(w, r, http.StatusInternalServerError, msg)
}
