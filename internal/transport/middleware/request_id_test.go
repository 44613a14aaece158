package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/pkg/ctxutil"
)

func TestRequestID_ReuseIncoming(t *testing.T) {
	incomingID := uuid.New().String()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID := ctxutil.RequestIDFromCtx(r.Context())
		if gotID != incomingID {
			t.Errorf("expected requestID %s, got %s", incomingID, gotID)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ctxutil.RequestIDHeader, incomingID)
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	if got := rec.Header().Get(ctxutil.RequestIDHeader); got != incomingID {
		t.Errorf("expected %s header %s, got %s", ctxutil.RequestIDHeader, incomingID, got)
	}
}

func TestRequestID_GenerateNew(t *testing.T) {
	var gotID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = ctxutil.RequestIDFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("expected valid UUID in context, got %q: %v", gotID, err)
	}
	if got := rec.Header().Get(ctxutil.RequestIDHeader); got != gotID {
		t.Errorf("expected header %q to match context %q", got, gotID)
	}
}
