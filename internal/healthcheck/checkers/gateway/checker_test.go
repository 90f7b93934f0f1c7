package gatewaychecker

import (
	"context"
	"testing"

	"github.com/chatline/chatline/internal/config"
	"github.com/chatline/chatline/internal/healthcheck"
)

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	full := config.GatewayConfig{AccountSID: "AC1", AuthToken: "tok"}
	cases := []struct {
		name     string
		cfg      config.GatewayConfig
		callback string
		want     string
	}{
		{name: "configured", cfg: full, callback: "https://x/webhook/status", want: healthcheck.StatusOK},
		{name: "no callback", cfg: full, want: healthcheck.StatusWarn},
		{name: "no token", cfg: config.GatewayConfig{AccountSID: "AC1"}, callback: "https://x", want: healthcheck.StatusError},
	}
	for _, tc := range cases {
		items := NewChecker(tc.cfg, tc.callback).ListChecks(context.Background())
		if len(items) != 1 || items[0].Status != tc.want {
			t.Fatalf("%s: unexpected items %+v", tc.name, items)
		}
	}
	if got := healthcheck.Worst(append(
		NewChecker(full, "").ListChecks(context.Background()),
		NewChecker(config.GatewayConfig{}, "").ListChecks(context.Background())...,
	)); got != healthcheck.StatusError {
		t.Fatalf("worst = %q", got)
	}
}
