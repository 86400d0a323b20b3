package wrapper

import (
	"context"
	"crypto/ed25519"
	"strconv"
	"sync"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/config"
)

var (
	// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
	ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

	// ErrInvalidPublicKey indicates a public key value did not decode to 32 bytes
	ErrInvalidPublicKey = errors.New("config: invalid public key")
)

// valueConfig wraps a raw config.Config, converting its values into T and
// falling back to a default when no value is set
type valueConfig[T any] struct {
	override     config.Config
	defaultValue T
	convert      func(interface{}) (T, error)

	stateMu   sync.RWMutex
	lastValue T
}

func newValueConfig[T any](override config.Config, defaultValue T, convert func(interface{}) (T, error)) *valueConfig[T] {
	return &valueConfig[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *valueConfig[T]) GetSafe(ctx context.Context) (T, error) {
	override, err := c.override.Get(ctx)
	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err == config.ErrNoValue {
		c.stateMu.Lock()
		c.lastValue = c.defaultValue
		c.stateMu.Unlock()
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}

	newValue, err := c.convert(override)
	if err != nil {
		return lastValue, err
	}

	c.stateMu.Lock()
	c.lastValue = newValue
	c.stateMu.Unlock()
	return newValue, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *valueConfig[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *valueConfig[T]) Shutdown() {
	c.override.Shutdown()
}

// NewUint64Config returns a new uint64 config utility wrapper
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newValueConfig(override, defaultValue, func(v interface{}) (uint64, error) {
		switch v := v.(type) {
		case []byte:
			return strconv.ParseUint(string(v), 10, 64)
		case uint64:
			return v, nil
		case uint:
			return uint64(v), nil
		default:
			return 0, ErrUnsuportedConversion
		}
	})
}

// NewStringConfig returns a new string config utility wrapper
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newValueConfig(override, defaultValue, func(v interface{}) (string, error) {
		switch v := v.(type) {
		case []byte:
			return string(v), nil
		case string:
			return v, nil
		default:
			return "", ErrUnsuportedConversion
		}
	})
}

// NewPublicKeyConfig returns a new public key config utility wrapper
func NewPublicKeyConfig(override config.Config, defaultValue ed25519.PublicKey) config.PublicKey {
	return newValueConfig(override, defaultValue, func(v interface{}) (ed25519.PublicKey, error) {
		var decoded []byte
		switch v := v.(type) {
		case []byte:
			return decodePublicKey(string(v))
		case string:
			return decodePublicKey(v)
		case ed25519.PublicKey:
			decoded = v
		default:
			return nil, ErrUnsuportedConversion
		}

		if len(decoded) != ed25519.PublicKeySize {
			return nil, ErrInvalidPublicKey
		}
		return decoded, nil
	})
}

func decodePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return decoded, nil
}
