package memory

import (
	"github.com/code-payments/amm-program/pkg/config"
	"github.com/code-payments/amm-program/pkg/config/env"
	"github.com/code-payments/amm-program/pkg/config/wrapper"

	config_memory "github.com/code-payments/amm-program/pkg/config/memory"
)

const (
	envConfigPrefix = "MEMORY_LEDGER_"

	LockStripesConfigEnvName = envConfigPrefix + "LOCK_STRIPES"
	defaultLockStripes       = 64
)

type conf struct {
	lockStripes config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lockStripes: env.NewUint64Config(LockStripesConfigEnvName, defaultLockStripes),
		}
	}
}

// WithLockStripes returns configuration with a fixed number of lock stripes
func WithLockStripes(stripes uint64) ConfigProvider {
	return func() *conf {
		return &conf{
			lockStripes: wrapper.NewUint64Config(config_memory.NewConfig(stripes), defaultLockStripes),
		}
	}
}
