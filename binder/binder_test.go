package binder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/binder"
)

type roleRequest struct {
	AccountID string `path:"accountID" json:"-"`
	UserID    string `path:"userID" json:"-"`
	Role      string `json:"role"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestBindJSON(t *testing.T) {
	t.Parallel()
	bind := binder.BindJSON()

	t.Run("decodes", func(t *testing.T) {
		t.Parallel()
		var req roleRequest
		require.NoError(t, bind(jsonRequest(`{"role":"admin"}`), &req))
		assert.Equal(t, "admin", req.Role)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		var req roleRequest
		assert.ErrorIs(t, bind(jsonRequest(`{"rank":"admin"}`), &req), binder.ErrInvalidJSON)
	})

	t.Run("trailing data", func(t *testing.T) {
		t.Parallel()
		var req roleRequest
		assert.ErrorIs(t, bind(jsonRequest(`{"role":"user"} {}`), &req), binder.ErrInvalidJSON)
	})

	t.Run("wrong media type", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString("role=user"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var req roleRequest
		assert.ErrorIs(t, bind(r, &req), binder.ErrUnsupportedMediaType)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()
		var req roleRequest
		assert.NoError(t, bind(httptest.NewRequest(http.MethodDelete, "/", nil), &req))
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	params := map[string]string{"accountID": "acc-1", "userID": "u-2"}
	bind := binder.Path(func(_ *http.Request, name string) string { return params[name] })

	var req roleRequest
	require.NoError(t, bind(httptest.NewRequest(http.MethodGet, "/", nil), &req))
	assert.Equal(t, "acc-1", req.AccountID)
	assert.Equal(t, "u-2", req.UserID)

	missing := binder.Path(func(*http.Request, string) string { return "" })
	assert.ErrorIs(t, missing(httptest.NewRequest(http.MethodGet, "/", nil), &req), binder.ErrInvalidPath)
}
