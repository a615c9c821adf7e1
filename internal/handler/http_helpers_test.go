package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "article-reader/pkg/errors"
)

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTeapot, "nope")

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content type application/json, got %s", ct)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"error":"nope"}` {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestWriteServiceError_TypedError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, apperrors.NewNotFoundError("highlight not found"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "highlight not found") {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestWriteServiceError_WrappedTypedError(t *testing.T) {
	rr := httptest.NewRecorder()
	wrapped := apperrors.NewNetworkError("remote unreachable", errors.New("dial tcp: refused"))
	writeServiceError(rr, wrapped)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
}

func TestWriteServiceError_PlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("internal error detail must not leak: %s", rr.Body.String())
	}
}
