package logger

import (
	"net/http"
	"testing"
)

func TestMaskAuthorization(t *testing.T) {
	got := MaskAuthorization("Bearer abcdef1234")
	want := "Bearer ****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskAuthorizationRawToken(t *testing.T) {
	got := MaskAuthorization("abcdef1234")
	want := "****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer abcdef1234")
	headers.Set("Cookie", "session=abcdef1234")
	headers.Set("X-Api-Key", "key_12345678")
	headers.Set("Content-Type", "application/json")

	masked := MaskHeaders(headers)
	if masked["Authorization"] != "****1234" {
		t.Fatalf("expected masked authorization, got %v", masked["Authorization"])
	}
	if masked["Cookie"] != "****1234" {
		t.Fatalf("expected masked cookie, got %v", masked["Cookie"])
	}
	if masked["X-Api-Key"] != "****5678" {
		t.Fatalf("expected masked api key, got %v", masked["X-Api-Key"])
	}
	if masked["Content-Type"] != "application/json" {
		t.Fatalf("expected content type untouched, got %v", masked["Content-Type"])
	}
}

func TestMaskHeadersEmpty(t *testing.T) {
	masked := MaskHeaders(nil)
	if len(masked) != 0 {
		t.Fatalf("expected empty map, got %v", masked)
	}
}
