package main

import (
	"strings"
	"sync"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/task"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddr() string {
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		return strings.TrimSpace(*c.addrFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return strings.TrimSpace(cfg.Paths.APIBind)
	}
	return ""
}

func (c *commandContext) openStore() (*task.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return task.Open(cfg)
}

// withRegistry hands the callback either a live daemon client or, when the
// daemon is unreachable, a direct store handle. Exactly one of the two is
// non-nil.
func (c *commandContext) withRegistry(fn func(client *apiClient, store *task.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	client := newAPIClient(c.apiAddr(), cfg.Paths.APIToken)
	if client != nil && client.reachable() {
		return fn(client, nil)
	}

	store, err := task.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(nil, store)
}
