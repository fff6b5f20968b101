package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/OCAP2/indicator/internal/settings"
)

// FileName is the configuration file looked up by Load.
const FileName = "indicator.cfg.json"

// LoggingConfig holds log sink settings.
type LoggingConfig struct {
	Level   string        `json:"logLevel" mapstructure:"logLevel"`
	Dir     string        `json:"logsDir" mapstructure:"logsDir"`
	Console bool          `json:"console" mapstructure:"console"`
	Graylog GraylogConfig `json:"graylog" mapstructure:"graylog"`
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds the OpenTelemetry provider settings. Metrics go to
// OutputFile (stdout when empty), logs to LogFile and, if set, Endpoint.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	Interval     time.Duration `json:"interval" mapstructure:"interval"`
	OutputFile   string        `json:"outputFile" mapstructure:"outputFile"`
	LogFile      string        `json:"logFile" mapstructure:"logFile"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// MemoryConfig holds in-memory/JSON telemetry backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	Capacity       int    `json:"capacity" mapstructure:"capacity"`
}

// SQLiteConfig holds sqlite telemetry backend settings. An empty Path keeps
// the database in memory and dumps it to OutputDir every DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds postgres telemetry backend settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds influx telemetry backend settings.
type InfluxConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// TelemetryConfig selects and configures the tick telemetry backend.
type TelemetryConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Influx   InfluxConfig   `json:"influx" mapstructure:"influx"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults registers the default values without reading a file. Hosts
// use it when no configuration directory was given.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./indicatorlogs")
	viper.SetDefault("console", true)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	d := settings.Default()
	viper.SetDefault("indicator.updateFrequency", d.UpdateFrequency.String())
	viper.SetDefault("indicator.projectionMode", d.ProjectionMode.String())
	viper.SetDefault("indicator.ignoreDepthAxisIn2D", d.IgnoreDepthAxisIn2D)
	viper.SetDefault("indicator.maxVisibleDistance", d.MaxVisibleDistance)
	viper.SetDefault("indicator.pivotOffset", d.PivotOffset)
	viper.SetDefault("indicator.useOffScreenIndicators", d.UseOffScreenIndicators)
	viper.SetDefault("indicator.screenEdgeMargin", d.ScreenEdgeMargin)
	viper.SetDefault("indicator.flipOffScreenMarkerY", d.FlipOffScreenMarkerY)
	viper.SetDefault("indicator.enableDistanceScaling", d.EnableDistanceScaling)
	viper.SetDefault("indicator.distanceForDefaultScale", d.DistanceForDefaultScale)
	viper.SetDefault("indicator.maxScalingDistance", d.MaxScalingDistance)
	viper.SetDefault("indicator.minScaleFactor", d.MinScaleFactor)
	viper.SetDefault("indicator.defaultScaleFactor", d.DefaultScaleFactor)
	viper.SetDefault("indicator.displayDistanceText", d.DisplayDistanceText)
	viper.SetDefault("indicator.unitSystem", d.UnitSystem.String())
	viper.SetDefault("indicator.distanceDecimalPlaces", d.DistanceDecimalPlaces)
	viper.SetDefault("indicator.meterSuffix", d.MeterSuffix)
	viper.SetDefault("indicator.kilometerSuffix", d.KilometerSuffix)
	viper.SetDefault("indicator.footSuffix", d.FootSuffix)
	viper.SetDefault("indicator.mileSuffix", d.MileSuffix)
	viper.SetDefault("indicator.poolCapacity", d.PoolCapacity)
	viper.SetDefault("indicator.poolPolicy", d.PoolPolicy.String())

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "indicator")
	viper.SetDefault("otel.interval", "10s")
	viper.SetDefault("otel.outputFile", "")
	viper.SetDefault("otel.logFile", "")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("telemetry.type", "none")
	viper.SetDefault("telemetry.memory.outputDir", "./telemetry")
	viper.SetDefault("telemetry.memory.compressOutput", true)
	viper.SetDefault("telemetry.memory.capacity", 4096)
	viper.SetDefault("telemetry.sqlite.path", "")
	viper.SetDefault("telemetry.sqlite.outputDir", "./telemetry")
	viper.SetDefault("telemetry.sqlite.dumpInterval", "3m")
	viper.SetDefault("telemetry.postgres.host", "localhost")
	viper.SetDefault("telemetry.postgres.port", "5432")
	viper.SetDefault("telemetry.postgres.username", "postgres")
	viper.SetDefault("telemetry.postgres.password", "postgres")
	viper.SetDefault("telemetry.postgres.database", "indicator")
	viper.SetDefault("telemetry.influx.host", "localhost")
	viper.SetDefault("telemetry.influx.port", "8086")
	viper.SetDefault("telemetry.influx.protocol", "http")
	viper.SetDefault("telemetry.influx.token", "supersecrettoken")
	viper.SetDefault("telemetry.influx.org", "indicator")
	viper.SetDefault("telemetry.influx.bucket", "indicator_ticks")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSettings builds engine settings from the indicator section. Unknown
// enum names are reported together; range checks are left to
// settings.Validate.
func GetSettings() (settings.Settings, error) {
	s := settings.Settings{
		IgnoreDepthAxisIn2D:     viper.GetBool("indicator.ignoreDepthAxisIn2D"),
		MaxVisibleDistance:      viper.GetFloat64("indicator.maxVisibleDistance"),
		PivotOffset:             viper.GetFloat64("indicator.pivotOffset"),
		UseOffScreenIndicators:  viper.GetBool("indicator.useOffScreenIndicators"),
		ScreenEdgeMargin:        viper.GetFloat64("indicator.screenEdgeMargin"),
		FlipOffScreenMarkerY:    viper.GetBool("indicator.flipOffScreenMarkerY"),
		EnableDistanceScaling:   viper.GetBool("indicator.enableDistanceScaling"),
		DistanceForDefaultScale: viper.GetFloat64("indicator.distanceForDefaultScale"),
		MaxScalingDistance:      viper.GetFloat64("indicator.maxScalingDistance"),
		MinScaleFactor:          viper.GetFloat64("indicator.minScaleFactor"),
		DefaultScaleFactor:      viper.GetFloat64("indicator.defaultScaleFactor"),
		DisplayDistanceText:     viper.GetBool("indicator.displayDistanceText"),
		DistanceDecimalPlaces:   viper.GetInt("indicator.distanceDecimalPlaces"),
		MeterSuffix:             viper.GetString("indicator.meterSuffix"),
		KilometerSuffix:         viper.GetString("indicator.kilometerSuffix"),
		FootSuffix:              viper.GetString("indicator.footSuffix"),
		MileSuffix:              viper.GetString("indicator.mileSuffix"),
		PoolCapacity:            viper.GetInt("indicator.poolCapacity"),
	}

	var errs []error
	var err error
	if s.UpdateFrequency, err = settings.ParseSeconds(viper.Get("indicator.updateFrequency")); err != nil {
		errs = append(errs, fmt.Errorf("indicator.updateFrequency: %w", err))
	}
	if s.ProjectionMode, err = settings.ParseProjectionMode(viper.GetString("indicator.projectionMode")); err != nil {
		errs = append(errs, err)
	}
	if s.UnitSystem, err = settings.ParseUnitSystem(viper.GetString("indicator.unitSystem")); err != nil {
		errs = append(errs, err)
	}
	if s.PoolPolicy, err = settings.ParsePoolPolicy(viper.GetString("indicator.poolPolicy")); err != nil {
		errs = append(errs, err)
	}

	return s, errors.Join(errs...)
}

// GetLoggingConfig returns the logging configuration.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:   viper.GetString("logLevel"),
		Dir:     viper.GetString("logsDir"),
		Console: viper.GetBool("console"),
		Graylog: GraylogConfig{
			Enabled: viper.GetBool("graylog.enabled"),
			Address: viper.GetString("graylog.address"),
		},
	}
}

// GetOTelConfig returns the metrics provider configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:     viper.GetBool("otel.enabled"),
		ServiceName: viper.GetString("otel.serviceName"),
		Interval:    viper.GetDuration("otel.interval"),
		OutputFile:  viper.GetString("otel.outputFile"),

		LogFile:      viper.GetString("otel.logFile"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetTelemetryConfig returns the telemetry backend configuration.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Type: viper.GetString("telemetry.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("telemetry.memory.outputDir"),
			CompressOutput: viper.GetBool("telemetry.memory.compressOutput"),
			Capacity:       viper.GetInt("telemetry.memory.capacity"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("telemetry.sqlite.path"),
			OutputDir:    viper.GetString("telemetry.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("telemetry.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("telemetry.postgres.host"),
			Port:     viper.GetString("telemetry.postgres.port"),
			Username: viper.GetString("telemetry.postgres.username"),
			Password: viper.GetString("telemetry.postgres.password"),
			Database: viper.GetString("telemetry.postgres.database"),
		},
		Influx: InfluxConfig{
			Host:     viper.GetString("telemetry.influx.host"),
			Port:     viper.GetString("telemetry.influx.port"),
			Protocol: viper.GetString("telemetry.influx.protocol"),
			Token:    viper.GetString("telemetry.influx.token"),
			Org:      viper.GetString("telemetry.influx.org"),
			Bucket:   viper.GetString("telemetry.influx.bucket"),
		},
	}
}
