package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/binder"
	"github.com/dmitrymomot/accountbilling/handler"
)

type createRequest struct {
	Name string `json:"name"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestWrap(t *testing.T) {
	t.Parallel()

	errHandler := handler.NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := handler.Wrap(
		func(_ handler.Context, req createRequest) handler.Response {
			if req.Name == "boom" {
				return handler.Error(errors.New("Must be an admin to perform this operation"))
			}
			return handler.Success(map[string]any{"name": req.Name})
		},
		handler.WithBinders[handler.Context, createRequest](binder.BindJSON()),
		handler.WithErrorHandler[handler.Context, createRequest](errHandler),
	)

	t.Run("success envelope", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"acme"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"data": map[string]any{"result": "success", "name": "acme"}}, decode(t, rec))
	})

	t.Run("service error becomes internal", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"boom"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, map[string]any{"error": map[string]any{
			"code":    "internal",
			"message": "Must be an admin to perform this operation",
		}}, decode(t, rec))
	})

	t.Run("bind error is bad request", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "invalid_argument", body["error"].(map[string]any)["code"])
	})
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := handler.JSONError(handler.Unauthorized(errors.New("jwt: invalid token"))).
		Render(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"error": map[string]any{
		"code":    "unauthenticated",
		"message": "jwt: invalid token",
	}}, decode(t, rec))
}
