package imaerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"generic default", New("boom", nil), http.StatusInternalServerError},
		{"generic status", WithStatus(404, "missing", nil), 404},
		{"wrapped generic", fmt.Errorf("load: %w", WithStatus(403, "nope", nil)), 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	if !IsClientError(WithStatus(404, "", nil)) {
		t.Error("404 should be a client error")
	}
	if IsClientError(WithStatus(500, "", nil)) {
		t.Error("500 should not be a client error")
	}
	if !IsRedirection(Redirect("/login", 0)) {
		t.Error("redirect error should be a redirection")
	}
	if IsRedirection(WithStatus(400, "", nil)) {
		t.Error("400 should not be a redirection")
	}
	if got := RedirectURL(Redirect("/login", 301)); got != "/login" {
		t.Errorf("RedirectURL() = %q, want %q", got, "/login")
	}
}

func TestGenericErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := New("failed", nil).Wrap(cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Error() != "failed: cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}
