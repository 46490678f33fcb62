// Package config loads the irrigation controller configuration from a YAML
// file with environment overrides. Secrets (API keys, broker credentials)
// come from the environment or a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gpellegrini/irrigo/internal/model"
)

var validate = validator.New()

// Config is the full controller configuration.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Weather  WeatherConfig  `yaml:"weather"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	History  HistoryConfig  `yaml:"history"`
	Influx   InfluxConfig   `yaml:"influx"`
	Pushover PushoverConfig `yaml:"pushover"`
	Zones    []ZoneConfig   `yaml:"zones" validate:"required,min=1,dive"`
}

// SiteConfig locates the installation.
type SiteConfig struct {
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	Altitude  float64 `yaml:"altitude"` // meters above sea level
	Timezone  string  `yaml:"timezone"` // IANA name, default UTC
}

// ScheduleConfig carries the site-level scheduling knobs.
type ScheduleConfig struct {
	SunriseOffset  float64  `yaml:"sunrise_offset"` // minutes, default 0
	Cycles         int      `yaml:"cycles"`         // default 2
	LowThreshold   *float64 `yaml:"low_threshold"`  // °C, default 5
	HighThreshold  *float64 `yaml:"high_threshold"` // °C, default 15
	RecheckMinutes float64  `yaml:"recheck_minutes"`
	ForecastDays   int      `yaml:"forecast_days"`   // default 8
	RefreshMinutes int      `yaml:"refresh_minutes"` // default 60
	// SolarRadiation maps month (1-12) to daily solar radiation in kWh.
	SolarRadiation map[int]float64 `yaml:"solar_radiation"`
}

// WeatherConfig selects the forecast sources.
type WeatherConfig struct {
	// StateTopic is the MQTT topic carrying the host platform's forecast
	// state. Empty disables the local source.
	StateTopic string `yaml:"state_topic"`
	// APIKey enables the OpenWeatherMap fallback. Env: OWM_API_KEY.
	APIKey       string        `yaml:"api_key"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default 30s
}

// MQTTConfig identifies the broker. An empty host disables MQTT entirely.
type MQTTConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"` // default 1883
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ClientID   string `yaml:"client_id"`   // default irrigo
	ValveTopic string `yaml:"valve_topic"` // default irrigation/valve/{zone}/set
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // default :8080
}

// HistoryConfig locates the run-history blob.
type HistoryConfig struct {
	Path string `yaml:"path"` // default irrigo_history.json
}

// InfluxConfig enables the watering-run recorder when URL is set.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// PushoverConfig enables notifications when both keys are set.
type PushoverConfig struct {
	Token    string `yaml:"token"`
	UserKey  string `yaml:"user_key"`
	Device   string `yaml:"device"`
	Priority *int   `yaml:"priority"` // overrides per-event priority when set
}

// ZoneConfig is the YAML shape of one irrigation zone. Pointer fields
// distinguish "absent" from an explicit zero so defaults can fill in.
type ZoneConfig struct {
	Name           string   `yaml:"name" validate:"required"`
	Enabled        *bool    `yaml:"enabled"`         // default true
	Adaptive       *bool    `yaml:"adaptive"`        // default true
	Area           float64  `yaml:"area"`            // m², default 10
	FlowRate       float64  `yaml:"flow_rate"`       // L/h per emitter, default 2
	EmitterCount   int      `yaml:"emitter_count"`   // default 10
	Efficiency     float64  `yaml:"efficiency"`      // %, default 90
	CropCoef       float64  `yaml:"crop_coef"`       // default 0.6
	PlantDensity   float64  `yaml:"plant_density"`   // default 1
	ExposureFactor float64  `yaml:"exposure_factor"` // default 1
	MaxDuration    float64  `yaml:"max_duration"`    // minutes, default 60
	RainThreshold  float64  `yaml:"rain_threshold"`  // mm, default 2.5
	RainFactoring  *bool    `yaml:"rain_factoring"`  // default true
	Weekdays       []string `yaml:"weekdays"`        // default all days
	Months         []int    `yaml:"months" validate:"dive,gte=1,lte=12"` // default all months
}

// Load reads the YAML file at path (or $IRRIGO_CONFIG when path is empty),
// applies environment overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg := &Config{}

	if path == "" {
		path = os.Getenv("IRRIGO_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OWM_API_KEY"); v != "" {
		c.Weather.APIKey = v
	}
	if v := os.Getenv("MQTT_HOST"); v != "" {
		c.MQTT.Host = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.MQTT.Port = p
		}
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		c.Influx.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Influx.Token = v
	}
	if v := os.Getenv("INFLUXDB_ORG"); v != "" {
		c.Influx.Org = v
	}
	if v := os.Getenv("INFLUXDB_BUCKET"); v != "" {
		c.Influx.Bucket = v
	}
	if v := os.Getenv("PUSHOVER_TOKEN"); v != "" {
		c.Pushover.Token = v
	}
	if v := os.Getenv("PUSHOVER_USER"); v != "" {
		c.Pushover.UserKey = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Site.Timezone == "" {
		c.Site.Timezone = "UTC"
	}
	if c.Schedule.Cycles <= 0 {
		c.Schedule.Cycles = 2
	}
	if c.Schedule.LowThreshold == nil {
		c.Schedule.LowThreshold = floatPtr(5)
	}
	if c.Schedule.HighThreshold == nil {
		c.Schedule.HighThreshold = floatPtr(15)
	}
	if c.Schedule.ForecastDays <= 0 {
		c.Schedule.ForecastDays = 8
	}
	if c.Schedule.RefreshMinutes <= 0 {
		c.Schedule.RefreshMinutes = 60
	}
	if c.Weather.FetchTimeout <= 0 {
		c.Weather.FetchTimeout = 30 * time.Second
	}
	if c.MQTT.Port <= 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "irrigo"
	}
	if c.MQTT.ValveTopic == "" {
		c.MQTT.ValveTopic = "irrigation/valve/{zone}/set"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.History.Path == "" {
		c.History.Path = "irrigo_history.json"
	}
	for i := range c.Zones {
		c.Zones[i].applyDefaults()
	}
}

func (z *ZoneConfig) applyDefaults() {
	if z.Enabled == nil {
		z.Enabled = boolPtr(true)
	}
	if z.Adaptive == nil {
		z.Adaptive = boolPtr(true)
	}
	if z.RainFactoring == nil {
		z.RainFactoring = boolPtr(true)
	}
	if z.Area <= 0 {
		z.Area = 10
	}
	if z.FlowRate <= 0 {
		z.FlowRate = 2
	}
	if z.EmitterCount <= 0 {
		z.EmitterCount = 10
	}
	if z.Efficiency <= 0 || z.Efficiency > 100 {
		z.Efficiency = 90
	}
	if z.CropCoef <= 0 {
		z.CropCoef = 0.6
	}
	if z.PlantDensity <= 0 {
		z.PlantDensity = 1
	}
	if z.ExposureFactor <= 0 {
		z.ExposureFactor = 1
	}
	if z.MaxDuration <= 0 {
		z.MaxDuration = 60
	}
	if z.RainThreshold <= 0 {
		z.RainThreshold = 2.5
	}
	if len(z.Weekdays) == 0 {
		z.Weekdays = append([]string(nil), model.WeekdayNames...)
	}
	if len(z.Months) == 0 {
		z.Months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}
}

// ModelZones converts the YAML zones into the engine's zone configuration.
func (c *Config) ModelZones() []model.ZoneConfig {
	out := make([]model.ZoneConfig, 0, len(c.Zones))
	for _, z := range c.Zones {
		out = append(out, model.ZoneConfig{
			Name:           z.Name,
			Enabled:        *z.Enabled,
			Adaptive:       *z.Adaptive,
			Area:           z.Area,
			FlowRate:       z.FlowRate,
			EmitterCount:   z.EmitterCount,
			Efficiency:     z.Efficiency,
			CropCoef:       z.CropCoef,
			PlantDensity:   z.PlantDensity,
			ExposureFactor: z.ExposureFactor,
			MaxDuration:    z.MaxDuration,
			RainThreshold:  z.RainThreshold,
			RainFactoring:  *z.RainFactoring,
			Weekdays:       z.Weekdays,
			Months:         z.Months,
		})
	}
	return out
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Site.Timezone)
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
