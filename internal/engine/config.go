package engine

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config хранит параметры запуска движка.
type Config struct {
	Port string `env:"MUD_PORT" envDefault:"8080"`

	// HeartbeatPeriod - период общего тика сердцебиений.
	HeartbeatPeriod time.Duration `env:"MUD_HEARTBEAT_PERIOD" envDefault:"1s"`
	// CombatTick - период тика боевой системы.
	CombatTick time.Duration `env:"MUD_COMBAT_TICK" envDefault:"1s"`
	// CallOutResolution - как часто проверяется очередь отложенных вызовов.
	CallOutResolution time.Duration `env:"MUD_CALLOUT_RESOLUTION" envDefault:"100ms"`
	// GCInterval - период сборки мусора (reset, clean-up, purge).
	GCInterval time.Duration `env:"MUD_GC_INTERVAL" envDefault:"5m"`

	// SaveDir - каталог снимков игроков. Пустой - без сохранения.
	SaveDir string `env:"MUD_SAVE_DIR" envDefault:"saves"`

	// Seed - зерно генератора случайных чисел боя. 0 - случайное.
	Seed int64 `env:"MUD_SEED" envDefault:"0"`

	// Cheats включает админские команды для всех игроков.
	Cheats bool `env:"MUD_CHEATS" envDefault:"false"`
}

// LoadConfig читает конфиг из окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, cfg.Validate()
}

// Validate проверяет, что все периоды положительны.
func (c Config) Validate() error {
	periods := []struct {
		name string
		d    time.Duration
	}{
		{"MUD_HEARTBEAT_PERIOD", c.HeartbeatPeriod},
		{"MUD_COMBAT_TICK", c.CombatTick},
		{"MUD_CALLOUT_RESOLUTION", c.CallOutResolution},
		{"MUD_GC_INTERVAL", c.GCInterval},
	}
	for _, p := range periods {
		if p.d <= 0 {
			return errors.Errorf("%s must be positive, got %s", p.name, p.d)
		}
	}
	if c.Port == "" {
		return errors.New("MUD_PORT is empty")
	}
	return nil
}
