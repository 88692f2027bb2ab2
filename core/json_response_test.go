package core_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/core"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	core.JSON(rec, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
}

func TestJSONError(t *testing.T) {
	t.Run("http error keeps status and key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		core.JSONError(rec, core.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "not_found", body.Error.Code)
	})

	t.Run("validation error maps to 422 with details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		verr := core.ValidationError{}
		verr.Add("email", "is required")
		core.JSONError(rec, verr)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body core.JSONResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, []string{"is required"}, body.Error.Details["email"])
	})

	t.Run("unknown error is opaque 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		core.JSONError(rec, errors.New("db connection string leaked"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "leaked")
	})
}
