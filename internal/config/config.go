// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package config loads the relay's environment-variable configuration
// (spec §6.4) through Viper, matching the shape of device/viper.go's
// NewOptions(logger, v) helper.
package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the relay's process configuration. Loader is an external
// collaborator per spec §1 — this package only binds and decodes it.
type Config struct {
	CloudPort               int           `mapstructure:"cloud_port"`
	DatabaseFile            string        `mapstructure:"database_file"`
	MessageRetentionMinutes int           `mapstructure:"message_retention_minutes"`
	DefaultDevicesLimit     int           `mapstructure:"default_devices_limit"`
	Debug                   bool          `mapstructure:"debug"`
	BaseURL                 string        `mapstructure:"base_url"`
}

// RetentionWindow converts MessageRetentionMinutes into a time.Duration
// for internal/retention.Sweeper.
func (c Config) RetentionWindow() time.Duration {
	return time.Duration(c.MessageRetentionMinutes) * time.Minute
}

// New builds a Viper instance bound to the env vars spec §6.4 names,
// with defaults matching core/config.py's Settings, and decodes it into
// a Config.
func New(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("cloud_port", 9009)
	v.SetDefault("database_file", "wakelink_cloud.db")
	v.SetDefault("message_retention_minutes", 5)
	v.SetDefault("default_devices_limit", 5)
	v.SetDefault("debug", false)
	v.SetDefault("base_url", "http://localhost:9009")

	v.AutomaticEnv()
	// AutomaticEnv already looks each key up under its upper-cased name
	// (cloud_port -> CLOUD_PORT); the explicit BindEnv calls name every
	// variable as well, so the mapping is spelled out here.
	_ = v.BindEnv("cloud_port", "CLOUD_PORT")
	_ = v.BindEnv("database_file", "DATABASE_FILE")
	_ = v.BindEnv("message_retention_minutes", "MESSAGE_RETENTION_MINUTES")
	_ = v.BindEnv("default_devices_limit", "DEFAULT_DEVICES_LIMIT")
	_ = v.BindEnv("debug", "DEBUG")
	_ = v.BindEnv("base_url", "BASE_URL")

	if flags != nil {
		_ = v.BindPFlags(flags)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
