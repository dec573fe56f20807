package combat

import "github.com/pkg/errors"

// Config - настройки боевой системы.
type Config struct {
	// SpeedFactor: шкала растет на speed*SpeedFactor за тик.
	SpeedFactor float64
	// MaxGauge - порог, при пересечении которого боец бьет.
	MaxGauge float64
	// DefaultSpeed используется, если у сущности нет атрибута speed.
	DefaultSpeed float64

	FleeBaseChance  float64
	FleeSpeedFactor float64
	FleeMinChance   float64
	FleeMaxChance   float64
}

func DefaultConfig() Config {
	return Config{
		SpeedFactor:     5,
		MaxGauge:        1000,
		DefaultSpeed:    10,
		FleeBaseChance:  0.5,
		FleeSpeedFactor: 0.05,
		FleeMinChance:   0.1,
		FleeMaxChance:   0.9,
	}
}

func (c Config) Validate() error {
	if c.SpeedFactor <= 0 {
		return errors.New("speed factor must be positive")
	}
	if c.MaxGauge <= 0 {
		return errors.New("max gauge must be positive")
	}
	if c.FleeMinChance < 0 || c.FleeMaxChance > 1 || c.FleeMinChance > c.FleeMaxChance {
		return errors.Errorf("invalid flee chance bounds [%v, %v]", c.FleeMinChance, c.FleeMaxChance)
	}
	return nil
}
