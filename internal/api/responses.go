package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/validation"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authResponse struct {
	Success   bool         `json:"success"`
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	Message   string       `json:"message"`
}

type refreshResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Message   string `json:"message"`
}

type userResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, errs validation.Errors) {
	writeJSON(w, status, errorResponse{Success: false, Message: message, Errors: errs})
}

func general(msg string) validation.Errors {
	return validation.Errors{"general": {msg}}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Success: true, Message: message})
}

// input holds request fields as strings regardless of whether they came as JSON or a form.
type input struct {
	values    map[string]string
	nonString map[string]bool
}

func (in input) get(field string) string {
	return in.values[field]
}

// optional returns nil for absent or empty fields.
func (in input) optional(field string) *string {
	v, ok := in.values[field]
	if !ok || v == "" {
		return nil
	}
	return &v
}

// requireStrings flags fields that were sent as arrays or objects.
func (in input) requireStrings(v *validation.Validator, fields ...string) {
	for _, f := range fields {
		if in.nonString[f] {
			v.Add(f, fmt.Sprintf("The %s field must be a string.", strings.ReplaceAll(f, "_", " ")))
		}
	}
}

var errMalformedBody = errors.New("malformed request body")

// readInput parses a JSON object or a urlencoded/multipart form.
func readInput(w http.ResponseWriter, r *http.Request) (input, error) {
	in := input{values: map[string]string{}, nonString: map[string]bool{}}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return in, errMalformedBody
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				in.values[k] = vs[0]
			}
		}
		return in, nil
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		return in, errMalformedBody
	}

	for k, msg := range raw {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return in, errMalformedBody
		}
		switch t := v.(type) {
		case nil:
		case string:
			in.values[k] = t
		case float64:
			in.values[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			in.values[k] = strconv.FormatBool(t)
		default:
			in.nonString[k] = true
		}
	}
	return in, nil
}

func bodyErrors() validation.Errors {
	return validation.Errors{"body": {"The request body must be a JSON object or form."}}
}
