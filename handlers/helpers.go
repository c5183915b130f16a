package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/junzhij/esports-tournament-live/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}

func okResponse(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, jsonResponse{"ok": true})
}

func errorResponse(w http.ResponseWriter, status int, message string, details []string) {
	env := jsonResponse{"error": message}
	if len(details) > 0 {
		env["details"] = details
	}
	writeJSON(w, status, env)
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error(), nil)
}

// mapServiceErrorToHTTP translates service-layer errors into HTTP
// responses. Validation failures carry the complete violation list;
// state conflicts are 409 so the admin UI can distinguish "fix your
// input" from "the state moved on".
func mapServiceErrorToHTTP(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		errorResponse(w, http.StatusBadRequest, "validation failed", validationErr.Details)

	case errors.Is(err, services.ErrBpLocked),
		errors.Is(err, services.ErrNoDraftToPublish),
		errors.Is(err, services.ErrNothingPublished),
		errors.Is(err, services.ErrNoEarlierSnapshot):
		errorResponse(w, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrGameNotFound):
		errorResponse(w, http.StatusNotFound, err.Error(), nil)

	case errors.Is(err, services.ErrLogoStorageNotConfigured):
		errorResponse(w, http.StatusServiceUnavailable, err.Error(), nil)

	default:
		slog.Error("internal server error", "error", err)
		errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request", nil)
	}
}
