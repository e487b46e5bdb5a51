// Package config loads runtime configuration from a YAML file, the environment
// and a .env file, in that order of increasing precedence for the last two.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/abhinaya/internal/engine"
	"github.com/ayusman/abhinaya/internal/face"
	"github.com/ayusman/abhinaya/internal/gesture"
)

// EnvPrefix prefixes every environment override, e.g. ABHINAYA_STREAM_POLL_INTERVAL.
const EnvPrefix = "ABHINAYA"

// ErrUnknownVariant is returned for a variant other than pose or expression.
var ErrUnknownVariant = errors.New("unknown variant")

// Detector variants.
const (
	VariantPose       = "pose"
	VariantExpression = "expression"
)

// Config is the root configuration.
type Config struct {
	Variant    string           `mapstructure:"variant" yaml:"variant" validate:"required,oneof=pose expression"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Stream     StreamConfig     `mapstructure:"stream" yaml:"stream"`
	Gesture    GestureConfig    `mapstructure:"gesture" yaml:"gesture"`
	Expression ExpressionConfig `mapstructure:"expression" yaml:"expression"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Plugins    PluginsConfig    `mapstructure:"plugins" yaml:"plugins"`
	Tray       bool             `mapstructure:"tray" yaml:"tray"`
}

// EngineConfig controls the face-tracking subprocess.
type EngineConfig struct {
	// Executable overrides the search under SearchRoot.
	Executable   string        `mapstructure:"executable" yaml:"executable"`
	SearchRoot   string        `mapstructure:"search_root" yaml:"search_root" validate:"required_without=Executable"`
	Device       int           `mapstructure:"device" yaml:"device" validate:"gte=0"`
	OutDir       string        `mapstructure:"out_dir" yaml:"out_dir" validate:"required"`
	OutName      string        `mapstructure:"out_name" yaml:"out_name" validate:"required"`
	Verbose      bool          `mapstructure:"verbose" yaml:"verbose"`
	StartTimeout time.Duration `mapstructure:"start_timeout" yaml:"start_timeout" validate:"gte=0"`
	WaitInterval time.Duration `mapstructure:"wait_interval" yaml:"wait_interval" validate:"gt=0"`
}

// StreamConfig controls how the output file is followed.
type StreamConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
}

// GestureConfig holds the head gesture window and thresholds.
type GestureConfig struct {
	// Window is in seconds. Zero selects the variant default.
	Window float64 `mapstructure:"window" yaml:"window" validate:"gte=0"`
	Pitch  float64 `mapstructure:"pitch" yaml:"pitch" validate:"gt=0"`
	Yaw    float64 `mapstructure:"yaw" yaml:"yaw" validate:"gt=0"`
	Roll   float64 `mapstructure:"roll" yaml:"roll" validate:"gt=0"`
}

// ExpressionConfig holds the expression window, thresholds and cooldown.
type ExpressionConfig struct {
	Window   float64 `mapstructure:"window" yaml:"window" validate:"gt=0"`
	Smile    float64 `mapstructure:"smile" yaml:"smile" validate:"gt=0"`
	Eyebrow  float64 `mapstructure:"eyebrow" yaml:"eyebrow" validate:"gt=0"`
	Mouth    float64 `mapstructure:"mouth" yaml:"mouth" validate:"gt=0"`
	Cooldown float64 `mapstructure:"cooldown" yaml:"cooldown" validate:"gte=0"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	// File enables a rotating log file in addition to stderr.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	NoColors   bool   `mapstructure:"no_colors" yaml:"no_colors"`
}

// StoreConfig locates the SQLite database. An empty path disables persistence.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig enables the HTTP API when Addr is set.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// RedisConfig enables event publishing when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel" yaml:"channel" validate:"required_with=Addr"`
}

// PluginsConfig controls action plugins.
type PluginsConfig struct {
	// Dir enables plugin dispatch when set.
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	// Rate is the sustained plugin executions per second.
	Rate  float64 `mapstructure:"rate" yaml:"rate" validate:"gt=0"`
	Burst int     `mapstructure:"burst" yaml:"burst" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	exprThresholds := gesture.DefaultExpressionThresholds()
	poseThresholds := gesture.DefaultPoseThresholds()
	return &Config{
		Variant: VariantExpression,
		Engine: EngineConfig{
			SearchRoot:   ".",
			OutDir:       ".",
			OutName:      "of2_out",
			StartTimeout: 30 * time.Second,
			WaitInterval: 500 * time.Millisecond,
		},
		Stream: StreamConfig{PollInterval: 10 * time.Millisecond},
		Gesture: GestureConfig{
			Pitch: poseThresholds.Pitch,
			Yaw:   poseThresholds.Yaw,
			Roll:  poseThresholds.Roll,
		},
		Expression: ExpressionConfig{
			Window:   gesture.DefaultShapeWindow,
			Smile:    exprThresholds.Smile,
			Eyebrow:  exprThresholds.Eyebrow,
			Mouth:    exprThresholds.Mouth,
			Cooldown: exprThresholds.Cooldown,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Server: ServerConfig{},
		Redis:  RedisConfig{Channel: "abhinaya:events"},
		Plugins: PluginsConfig{
			Timeout: 5 * time.Second,
			Rate:    2,
			Burst:   4,
		},
	}
}

// Load reads configuration from path (optional), a .env file in the working
// directory (optional) and ABHINAYA_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	// No default: zero means "use the variant's window".
	if err := v.BindEnv("gesture.window"); err != nil {
		return nil, fmt.Errorf("bind gesture.window: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyVariantDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("variant", d.Variant)

	v.SetDefault("engine.executable", d.Engine.Executable)
	v.SetDefault("engine.search_root", d.Engine.SearchRoot)
	v.SetDefault("engine.device", d.Engine.Device)
	v.SetDefault("engine.out_dir", d.Engine.OutDir)
	v.SetDefault("engine.out_name", d.Engine.OutName)
	v.SetDefault("engine.verbose", d.Engine.Verbose)
	v.SetDefault("engine.start_timeout", d.Engine.StartTimeout)
	v.SetDefault("engine.wait_interval", d.Engine.WaitInterval)

	v.SetDefault("stream.poll_interval", d.Stream.PollInterval)

	v.SetDefault("gesture.pitch", d.Gesture.Pitch)
	v.SetDefault("gesture.yaw", d.Gesture.Yaw)
	v.SetDefault("gesture.roll", d.Gesture.Roll)

	v.SetDefault("expression.window", d.Expression.Window)
	v.SetDefault("expression.smile", d.Expression.Smile)
	v.SetDefault("expression.eyebrow", d.Expression.Eyebrow)
	v.SetDefault("expression.mouth", d.Expression.Mouth)
	v.SetDefault("expression.cooldown", d.Expression.Cooldown)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.no_colors", d.Log.NoColors)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.channel", d.Redis.Channel)

	v.SetDefault("plugins.dir", d.Plugins.Dir)
	v.SetDefault("plugins.timeout", d.Plugins.Timeout)
	v.SetDefault("plugins.rate", d.Plugins.Rate)
	v.SetDefault("plugins.burst", d.Plugins.Burst)

	v.SetDefault("tray", d.Tray)
}

func (c *Config) applyVariantDefaults() {
	if c.Gesture.Window > 0 {
		return
	}
	c.Gesture.Window = variantWindow(c.Variant)
}

func variantWindow(variant string) float64 {
	if variant == VariantPose {
		return gesture.DefaultPoseOnlyPoseWindow
	}
	return gesture.DefaultPoseWindow
}

// SetVariant switches the detector variant. A gesture window still at the old
// variant's default follows the new variant.
func (c *Config) SetVariant(variant string) error {
	if variant != VariantPose && variant != VariantExpression {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	if c.Gesture.Window == variantWindow(c.Variant) {
		c.Gesture.Window = 0
	}
	c.Variant = variant
	c.applyVariantDefaults()
	return nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Write emits c as YAML.
func Write(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// Expressions reports whether the expression path is enabled.
func (c *Config) Expressions() bool {
	return c.Variant == VariantExpression
}

// Layout returns the row layout matching the variant.
func (c *Config) Layout() face.Layout {
	if c.Expressions() {
		return face.OpenFaceLayout()
	}
	return face.OpenFaceLayout().PoseOnly()
}

// DetectorConfig converts the classification settings.
func (c *Config) DetectorConfig() gesture.DetectorConfig {
	return gesture.DetectorConfig{
		PoseWindow: c.Gesture.Window,
		Pose: gesture.PoseThresholds{
			Pitch: c.Gesture.Pitch,
			Yaw:   c.Gesture.Yaw,
			Roll:  c.Gesture.Roll,
		},
		Expressions: c.Expressions(),
		ShapeWindow: c.Expression.Window,
		Expression: gesture.ExpressionThresholds{
			Smile:    c.Expression.Smile,
			Eyebrow:  c.Expression.Eyebrow,
			Mouth:    c.Expression.Mouth,
			Cooldown: c.Expression.Cooldown,
		},
	}
}

// EngineConfig converts the engine settings for a resolved executable.
func (c *Config) EngineConfig(executable string) engine.Config {
	return engine.Config{
		Executable: executable,
		Device:     c.Engine.Device,
		OutDir:     c.Engine.OutDir,
		OutName:    c.Engine.OutName,
		Verbose:    c.Engine.Verbose,
	}
}
