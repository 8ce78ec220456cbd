package config

import (
	"os"
	"strconv"
	"strings"
)

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(env)
	if !found {
		return defaultValue
	}
	value, err := strconv.ParseInt(strings.TrimSpace(envValue), 10, 32)
	if err != nil {
		log.WithError(err).WithField("env", env).Warn("Failed to parse environment variable")
		return defaultValue
	}
	return int(value)
}

func GetBoolEnv(env string, defaultValue bool) bool {
	envValue, found := os.LookupEnv(env)
	if !found {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(envValue))
	if err != nil {
		log.WithError(err).WithField("env", env).Warn("Failed to parse environment variable")
		return defaultValue
	}
	return value
}

func GetStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(env)
	if !found {
		return defaultValue
	}
	return strings.TrimSpace(envValue)
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(env)
	if !found {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(envValue), 64)
	if err != nil {
		log.WithError(err).WithField("env", env).Warn("Failed to parse environment variable")
		return defaultValue
	}
	return value
}
