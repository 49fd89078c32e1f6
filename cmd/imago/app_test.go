package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/imago-dev/imago"
)

func TestStarterPages(t *testing.T) {
	app := imago.New(imago.Config{
		App:    map[string]any{"title": "Starter"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer app.Close()
	if err := setup(app); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path       string
		wantStatus int
		wantBody   []string
	}{
		{path: "/", wantStatus: http.StatusOK, wantBody: []string{"<h1>Starter</h1>", "<title>Starter</title>"}},
		{path: "/hello", wantStatus: http.StatusOK, wantBody: []string{"<h1>Hello world!</h1>"}},
		{path: "/hello/gopher", wantStatus: http.StatusOK, wantBody: []string{"<h1>Hello gopher!</h1>", "<title>Hello gopher</title>"}},
		{path: "/nowhere", wantStatus: http.StatusNotFound, wantBody: []string{"Nothing lives at /nowhere."}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost"+tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d\n%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(rec.Body.String(), want) {
					t.Errorf("body missing %q:\n%s", want, rec.Body.String())
				}
			}
		})
	}
}
