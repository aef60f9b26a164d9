package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                    "/",
		"/metrics":                            "/metrics",
		"/v1/items":                           "/v1/items",
		"/v1/items/abc":                       "/v1/items/:id",
		"/v1/items/abc/log":                   "/v1/items/:id/log",
		"/v1/items/abc/adjust?confirm=true":   "/v1/items/:id/adjust",
		"/v1/items/abc/extra/more":            "/v1/items/abc/extra/more",
		"/v1/transactions/abc":                "/v1/transactions/:id",
		"/v1/transactions?period=2026-10":     "/v1/transactions",
		"/v1/journals/sales":                  "/v1/journals/sales",
		"/v1/journals/purchases/abc/settle":   "/v1/journals/purchases/:id/settle",
		"/v1/journals/general?period=2026-01": "/v1/journals/general",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestBuildInfoKeepsExplicitCommit(t *testing.T) {
	InitBuildInfo("1.2.3", "abc123", 1)
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("1.2.3", "abc123", "1")); got != 1 {
		t.Fatalf("build info gauge = %v, want 1", got)
	}
}
