package amm

import (
	"crypto/ed25519"

	"github.com/code-payments/amm-program/pkg/config"
	"github.com/code-payments/amm-program/pkg/config/env"
	"github.com/code-payments/amm-program/pkg/config/memory"
	"github.com/code-payments/amm-program/pkg/config/wrapper"
)

const (
	envConfigPrefix = "AMM_"

	ProgramIDConfigEnvName = envConfigPrefix + "PROGRAM_ID"
)

type conf struct {
	programID config.PublicKey
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			programID: env.NewPublicKeyConfig(ProgramIDConfigEnvName, DefaultProgramID),
		}
	}
}

// WithProgramID returns configuration for a program deployed at the provided
// address
func WithProgramID(programID ed25519.PublicKey) ConfigProvider {
	return func() *conf {
		return &conf{
			programID: wrapper.NewPublicKeyConfig(memory.NewConfig(programID), DefaultProgramID),
		}
	}
}
