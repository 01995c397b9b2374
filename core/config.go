package core

import (
	"math"

	"github.com/pelletier/go-toml"
)

var config *toml.Tree

// LoadConfig loads the engine configuration from the specified TOML file.
func LoadConfig(file string) error {
	var err error
	config, err = toml.LoadFile(file)
	if err != nil {
		return err
	}
	return nil
}

// LoadConfigDefaults installs an empty configuration tree so that every
// GetConfig*Default call simply returns its default. Used by tests and by
// callers that don't ship a config file.
func LoadConfigDefaults() {
	config, _ = toml.Load("")
}

// GetConfigIntDefault returns the integer configuration value at key, or def.
func GetConfigIntDefault(key string, def int) int {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(int64)
	if ok && val >= math.MinInt32 && val <= math.MaxInt32 {
		return int(val)
	}
	return def
}

// GetConfigUint16Default returns the uint16 configuration value at key, or def.
func GetConfigUint16Default(key string, def uint16) uint16 {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(int64)
	if ok && val > 0 && val <= math.MaxUint16 {
		return uint16(val)
	}
	return def
}

// GetConfigUint32Default returns the uint32 configuration value at key, or def.
func GetConfigUint32Default(key string, def uint32) uint32 {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(int64)
	if ok && val >= 0 && val <= math.MaxUint32 {
		return uint32(val)
	}
	return def
}

// GetConfigStringDefault returns the string configuration value at key, or def.
func GetConfigStringDefault(key string, def string) string {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(string)
	if ok {
		return val
	}
	return def
}

// GetConfigBoolDefault returns the boolean configuration value at key, or def.
func GetConfigBoolDefault(key string, def bool) bool {
	if config == nil {
		return def
	}
	valRaw := config.Get(key)
	if valRaw == nil {
		return def
	}
	val, ok := valRaw.(bool)
	if ok {
		return val
	}
	return def
}
