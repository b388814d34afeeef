package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "CONFIG_FILE"

type Config interface {
	EnvConfig
	CorsConfig
	OTPConfig
	SessionConfig
	DeviceConfig
	DeliveryConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars  `yaml:"app"`
	Cors     `yaml:"cors"`
	OTP      `yaml:"otp"`
	Session  `yaml:"session"`
	Device   `yaml:"device"`
	Delivery `yaml:"delivery"`
	Store    `yaml:"store"`
}

// New returns the defaults overlaid with environment variables.
func New() Config {
	c := defaults()
	c.applyEnv()
	return c
}

// Load reads an optional YAML file and then applies environment variables on top.
// An empty path falls back to CONFIG_FILE and then to defaults only.
func Load(path string) (Config, error) {
	if path == "" {
		path = GetEnv(configFileEnvVar, "")
	}
	c := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config.Load parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func defaults() *mainConfig {
	return &mainConfig{
		EnvVars:  defaultEnvVars(),
		Cors:     defaultCors(),
		OTP:      defaultOTP(),
		Session:  defaultSession(),
		Device:   defaultDevice(),
		Delivery: defaultDelivery(),
		Store:    defaultStore(),
	}
}

func (c *mainConfig) applyEnv() {
	c.EnvVars.applyEnv()
	c.Cors.applyEnv()
	c.OTP.applyEnv()
	c.Session.applyEnv()
	c.Device.applyEnv()
	c.Delivery.applyEnv()
	c.Store.applyEnv()
}
