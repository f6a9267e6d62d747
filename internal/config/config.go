// Package config loads and validates the controller configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SMOKE"

// Probe and fan drivers.
const (
	DriverThermistor = "thermistor"
	DriverPWM        = "pwm"
	DriverSim        = "sim"
)

type Config struct {
	Port     string         `mapstructure:"port"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Control  ControlConfig  `mapstructure:"control"`
	Maintain MaintainConfig `mapstructure:"maintain"`
	History  HistoryConfig  `mapstructure:"history"`
	Probes   []ProbeConfig  `mapstructure:"probes"`
	Fan      FanConfig      `mapstructure:"fan"`
	Sim      SimConfig      `mapstructure:"sim"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string           `mapstructure:"signing_key"`
	TokenTTL   time.Duration    `mapstructure:"token_ttl"`
	Operators  []OperatorConfig `mapstructure:"operators"`
}

type OperatorConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ControlConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	InitialTargetC     float64       `mapstructure:"initial_target_c"`
	Enabled            bool          `mapstructure:"enabled"`
	FaultRetryInterval time.Duration `mapstructure:"fault_retry_interval"`
}

type MaintainConfig struct {
	SmoothingWindow int           `mapstructure:"smoothing_window"`
	DeadbandC       float64       `mapstructure:"deadband_c"`
	HysteresisC     float64       `mapstructure:"hysteresis_c"`
	Bands           BandsConfig   `mapstructure:"bands"`
	MinDwell        time.Duration `mapstructure:"min_dwell"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	FailSafeAfter   time.Duration `mapstructure:"fail_safe_after"`
	TrendLookahead  time.Duration `mapstructure:"trend_lookahead"`
}

// BandsConfig holds the error (°C below target) each fan level needs.
type BandsConfig struct {
	Slow   float64 `mapstructure:"slow"`
	Medium float64 `mapstructure:"medium"`
	Fast   float64 `mapstructure:"fast"`
}

type HistoryConfig struct {
	MaxSamples int           `mapstructure:"max_samples"`
	Retention  time.Duration `mapstructure:"retention"`
}

type ProbeConfig struct {
	ID             string        `mapstructure:"id"`
	Name           string        `mapstructure:"name"`
	Role           string        `mapstructure:"role"`
	Driver         string        `mapstructure:"driver"`
	Address        string        `mapstructure:"address"` // IIO raw channel file for thermistors
	ADCBits        int           `mapstructure:"adc_bits"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MinC           float64       `mapstructure:"min_c"`
	MaxC           float64       `mapstructure:"max_c"`
	Enabled        bool          `mapstructure:"enabled"`
	DoneC          float64       `mapstructure:"done_c"`
}

type FanConfig struct {
	Driver         string        `mapstructure:"driver"`
	Address        string        `mapstructure:"address"` // sysfs PWM channel directory
	PeriodNS       int64         `mapstructure:"period_ns"`
	DutyCycles     []int         `mapstructure:"duty_cycles"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Settle         time.Duration `mapstructure:"settle"`
}

type SimConfig struct {
	Tick        time.Duration `mapstructure:"tick"`
	AmbientC    float64       `mapstructure:"ambient_c"`
	StartC      float64       `mapstructure:"start_c"`
	MaxC        float64       `mapstructure:"max_c"`
	HeatCPerSec []float64     `mapstructure:"heat_c_per_sec"`
	CoolCPerSec float64       `mapstructure:"cool_c_per_sec"`
}

// Load reads the YAML file at path (configs/config.yml when empty), applies SMOKE_*
// environment overrides and a local .env file if present, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyProbeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "file:smoke_session?mode=memory&cache=shared")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("control.interval", 5*time.Second)
	v.SetDefault("control.initial_target_c", 110.0)
	v.SetDefault("control.enabled", false)
	v.SetDefault("control.fault_retry_interval", 30*time.Second)

	v.SetDefault("maintain.smoothing_window", 3)
	v.SetDefault("maintain.deadband_c", 2.0)
	v.SetDefault("maintain.hysteresis_c", 3.0)
	v.SetDefault("maintain.bands.slow", 2.0)
	v.SetDefault("maintain.bands.medium", 8.0)
	v.SetDefault("maintain.bands.fast", 20.0)
	v.SetDefault("maintain.min_dwell", 30*time.Second)
	v.SetDefault("maintain.stale_after", 30*time.Second)
	v.SetDefault("maintain.fail_safe_after", 2*time.Minute)
	v.SetDefault("maintain.trend_lookahead", time.Duration(0))

	v.SetDefault("history.max_samples", 720)
	v.SetDefault("history.retention", 2*time.Hour)

	v.SetDefault("fan.driver", DriverSim)
	v.SetDefault("fan.period_ns", 10_000_000)
	v.SetDefault("fan.duty_cycles", []int{0, 35, 65, 90})
	v.SetDefault("fan.command_timeout", 2*time.Second)
	v.SetDefault("fan.max_attempts", 3)
	v.SetDefault("fan.backoff", 200*time.Millisecond)
	v.SetDefault("fan.max_backoff", 5*time.Second)
	v.SetDefault("fan.settle", 5*time.Second)

	v.SetDefault("sim.tick", time.Second)
	v.SetDefault("sim.ambient_c", 20.0)
}

// applyProbeDefaults fills per-probe fields viper cannot default inside a list.
func (c *Config) applyProbeDefaults() {
	for i := range c.Probes {
		p := &c.Probes[i]
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.Driver == "" {
			p.Driver = DriverSim
		}
		if p.ADCBits == 0 {
			p.ADCBits = 10
		}
		if p.SampleInterval == 0 {
			p.SampleInterval = 10 * time.Second
		}
		if p.ReadTimeout == 0 {
			p.ReadTimeout = 2 * time.Second
		}
		if p.MinC == 0 && p.MaxC == 0 {
			p.MinC, p.MaxC = -20, 400
		}
	}
}
