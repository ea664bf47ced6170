package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// JSON wraps v as {"data": v}.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Success is the {"data":{"result":"success", ...fields}} body returned by
// mutating operations.
func Success(fields map[string]any) Response {
	data := map[string]any{"result": "success"}
	for k, v := range fields {
		data[k] = v
	}
	return JSON(data)
}

// JSONError renders err as {"error":{"code","message"}}. HTTPError picks the
// status and code; anything else is 500 with code "internal" and the error text.
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusInternalServerError,
		body:   JSONResponse{Error: &ErrorDetail{Code: "internal", Message: err.Error()}},
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		r.status = httpErr.Status
		r.body.Error.Code = httpErr.Code
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}
