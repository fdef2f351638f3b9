package audit

import (
	"bytes"
	"context"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDigestJSON(t *testing.T) {
	if DigestJSON(nil) != "" {
		t.Fatalf("expected empty digest for empty payload")
	}
	a := DigestJSON([]byte(`{"name":"Main"}`))
	b := DigestJSON([]byte(`{"name":"Main"}`))
	if a == "" || a != b || len(a) != 64 {
		t.Fatalf("unexpected digest %q", a)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %q", got)
	}
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger(log.New(&buf, "", 0))
	err := logger.Log(context.Background(), Entry{OrganizationID: 3, Action: "station.create", ResourceType: "bar_station", ResourceID: "5"})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(buf.String(), "org=3") || !strings.Contains(buf.String(), "action=station.create") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
