package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/agentstation/hubsync/pkg/errors"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration, so it can
// serve as the secret lookup of ExternalClient.
func GetString(key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// Required returns the value of key or a ConfigError naming it.
func Required(key string) (string, error) {
	v := GetString(key)
	if v == "" {
		return "", errors.NewConfigError("settings", key+" is not set", errors.ErrInvalidInput)
	}
	return v, nil
}
