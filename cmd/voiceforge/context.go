package main

import (
	"strings"

	"voiceforge/internal/config"
)

// commandContext carries flag state shared by every subcommand and resolves
// the daemon base URL lazily, so commands that never talk to the daemon do
// not require a reachable server.
type commandContext struct {
	serverFlag *string
	configFlag *string

	cfg *config.Config
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{serverFlag: serverFlag, configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// baseURL resolves the API address: the --server flag wins, then the config
// file's bind address.
func (c *commandContext) baseURL() (string, error) {
	if value := strings.TrimSpace(*c.serverFlag); value != "" {
		return normalizeBaseURL(value), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return normalizeBaseURL(cfg.Paths.APIBind), nil
}

func normalizeBaseURL(value string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return "http://" + value
}

func (c *commandContext) client() (*apiClient, error) {
	base, err := c.baseURL()
	if err != nil {
		return nil, err
	}
	return newAPIClient(base), nil
}
