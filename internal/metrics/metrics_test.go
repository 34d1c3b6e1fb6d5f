package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/latest/{token}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/latest/{token}", "418"))
	for _, token := range []string{"dow", "DJIA", "nasdaq"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/latest/"+token, nil))
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/latest/{token}", "418"))

	if after-before != 3 {
		t.Errorf("expected 3 requests under the route pattern, got %v", after-before)
	}
}

func TestMiddleware_DefaultStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/collections", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("[]"))
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/collections", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/collections", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/collections", "200"))

	if after-before != 1 {
		t.Errorf("expected one 200 request, got %v", after-before)
	}
}

func TestStatusWriter_Hijack(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: 200}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("expected an error for a writer that cannot hijack")
	}
	if sw.Unwrap() == nil {
		t.Error("Unwrap should return the inner writer")
	}
}
