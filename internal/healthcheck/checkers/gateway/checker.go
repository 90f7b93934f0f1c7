package gatewaychecker

import (
	"context"
	"strings"

	"github.com/chatline/chatline/internal/config"
	"github.com/chatline/chatline/internal/healthcheck"
)

const checkTypeGatewayConfig = "gateway.config"

// Checker reports whether outbound sends can work with the loaded config.
type Checker struct {
	cfg            config.GatewayConfig
	statusCallback string
}

func NewChecker(cfg config.GatewayConfig, statusCallback string) *Checker {
	return &Checker{cfg: cfg, statusCallback: statusCallback}
}

func (c *Checker) ListChecks(_ context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeGatewayConfig,
		Type:     checkTypeGatewayConfig,
		Status:   healthcheck.StatusOK,
		Summary:  "Gateway credentials configured.",
		Metadata: map[string]any{"own_numbers": len(c.cfg.OwnNumbers)},
	}
	var missing []string
	if strings.TrimSpace(c.cfg.AccountSID) == "" {
		missing = append(missing, "account_sid")
	}
	if strings.TrimSpace(c.cfg.AuthToken) == "" {
		missing = append(missing, "auth_token")
	}
	switch {
	case len(missing) > 0:
		item.Status = healthcheck.StatusError
		item.Summary = "Gateway credentials missing."
		item.Detail = strings.Join(missing, ", ")
	case c.statusCallback == "":
		item.Status = healthcheck.StatusWarn
		item.Summary = "No status callback URL; delivery status will not be tracked."
	}
	return []healthcheck.CheckResult{item}
}
