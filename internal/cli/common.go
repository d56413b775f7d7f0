package cli

import (
	"time"

	"github.com/rshade/ysyunhei/internal/blacklist"
	"github.com/rshade/ysyunhei/internal/config"
	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/metrics"
	"github.com/rshade/ysyunhei/internal/version"
	"github.com/rshade/ysyunhei/internal/yunhei"
)

// newBlacklistClient builds the API client from cfg.
func newBlacklistClient(cfg *config.Config, m *metrics.Collector) *blacklist.Client {
	return blacklist.New(blacklist.Options{
		BaseURL:   cfg.APIBaseURL,
		APIKey:    cfg.APIKey,
		UserAgent: version.UserAgent(),
		Metrics:   m,
	})
}

// serviceOptions maps the configuration onto the command service.
func serviceOptions(cfg *config.Config, gate *cooldown.Gate, m *metrics.Collector) yunhei.Options {
	return yunhei.Options{
		APIKey:         cfg.APIKey,
		Admins:         cfg.AdminQQs,
		SiteURL:        cfg.APIBaseURL,
		SleepStartHour: cfg.SleepStartHour,
		SleepEndHour:   cfg.SleepEndHour,
		SleepMuteHours: cfg.SleepMuteHours,
		Gate:           gate,
		Metrics:        m,
		Now:            time.Now,
	}
}

func cooldownOptions(cfg *config.Config) cooldown.Options {
	return cooldown.Options{
		Backend:       cfg.Cooldown.Backend,
		RedisAddr:     cfg.Cooldown.RedisAddr,
		RedisPassword: cfg.Cooldown.RedisPassword,
		RedisDB:       cfg.Cooldown.RedisDB,
	}
}
