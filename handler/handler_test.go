package handler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/devicecap/handler"
	"github.com/dmitrymomot/devicecap/pkg/binder"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/validator"
)

type greetRequest struct {
	Name  string `json:"name" validate:"required,max=10"`
	Shout bool   `query:"shout" json:"-"`
}

var errDomainConflict = errors.New("domain.errors.busy")

func conflicts(err error) (handler.HTTPError, bool) {
	if errors.Is(err, errDomainConflict) {
		return handler.NewHTTPError(http.StatusConflict, "domain.errors.busy"), true
	}
	return handler.HTTPError{}, false
}

func greet(ctx handler.Context, req greetRequest) handler.Response {
	switch req.Name {
	case "busy":
		return handler.Error(fmt.Errorf("greeting: %w", errDomainConflict))
	case "crash":
		return handler.Error(errors.New("database exploded"))
	case "nil":
		return nil
	}
	msg := "hello " + req.Name
	if req.Shout {
		msg = strings.ToUpper(msg)
	}
	return handler.JSON(map[string]string{"message": msg}, handler.WithStatus(http.StatusCreated))
}

func serve(t *testing.T, target, body string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	h := handler.Wrap(greet,
		handler.WithBinders[greetRequest](binder.JSON(), binder.Query()),
		handler.WithValidator[greetRequest](validator.New()),
		handler.WithErrorHandler[greetRequest](handler.NewErrorHandler(logger.Discard(), conflicts)),
	)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		rec, resp := serve(t, "/?shout=true", `{"name":"ann"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, map[string]any{"message": "HELLO ANN"}, resp.Data)
		assert.Nil(t, resp.Error)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		rec, resp := serve(t, "/", `{"name":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "validation_error", resp.Error.Code)
		assert.Equal(t, []string{"is required"}, resp.Error.Details["name"])
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		rec, resp := serve(t, "/", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", resp.Error.Code)
	})

	t.Run("classified domain error", func(t *testing.T) {
		t.Parallel()
		rec, resp := serve(t, "/", `{"name":"busy"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "domain.errors.busy", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "greeting")
	})

	t.Run("unknown error hides details", func(t *testing.T) {
		t.Parallel()
		rec, resp := serve(t, "/", `{"name":"crash"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, resp.Error.Message, "database")
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		rec, _ := serve(t, "/", `{"name":"nil"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDecorators_Order(t *testing.T) {
	t.Parallel()
	var order []string
	tag := func(name string) handler.Decorator[struct{}] {
		return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return handler.Empty() },
		handler.WithDecorators(tag("outer"), tag("inner")),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestBlob(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	require.NoError(t, handler.Blob("image/png", []byte("png")).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())
}
