package config

import (
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wakala/feerecon/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. FEECHECK_LOG_LEVEL.
const EnvPrefix = "FEECHECK"

// Config is the full application configuration.
type Config struct {
	Inputs   InputsConfig   `mapstructure:"inputs" yaml:"inputs"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Traffic  TrafficConfig  `mapstructure:"traffic" yaml:"traffic"`
	Mismatch MismatchConfig `mapstructure:"mismatch" yaml:"mismatch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// InputsConfig locates the three source logs.
type InputsConfig struct {
	TradeLog string `mapstructure:"trade_log" yaml:"trade_log"`
	DumpLog  string `mapstructure:"dump_log" yaml:"dump_log"`
	OrderLog string `mapstructure:"order_log" yaml:"order_log"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TrafficConfig selects the dump-log messages that carry fees.
type TrafficConfig struct {
	Direction   string `mapstructure:"direction" yaml:"direction"`
	MessageName string `mapstructure:"message_name" yaml:"message_name"`
	MessageKind string `mapstructure:"message_kind" yaml:"message_kind"`
}

func (t TrafficConfig) Filter() domain.TrafficFilter {
	return domain.TrafficFilter{
		Direction:   t.Direction,
		MessageName: t.MessageName,
		MessageKind: t.MessageKind,
	}
}

type MismatchConfig struct {
	// Mode is standard or gt_aware.
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// LogConfig configures the zap logger. File is optional; when set, output is
// also written there and rotated.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type ServerConfig struct {
	Port   int    `mapstructure:"port" yaml:"port"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

var defaults = map[string]any{
	"inputs.trade_log":     "data/own_trade_log.csv",
	"inputs.dump_log":      "data/dump_log.csv",
	"inputs.order_log":     "data/order_log.csv",
	"output.dir":           "output",
	"traffic.direction":    "In",
	"traffic.message_name": "WsPayload",
	"traffic.message_kind": "Regular",
	"mismatch.mode":        string(domain.ModeGTAware),
	"log.level":            "info",
	"log.format":           "console",
	"log.file":             "",
	"log.max_size_mb":      100,
	"log.max_backups":      3,
	"log.max_age_days":     28,
	"log.compress":         false,
	"server.port":          8080,
	"server.db_path":       "feerecon.db",
}

// Load reads configuration from the optional YAML file at path, then applies
// FEECHECK_* environment overrides. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Inputs: InputsConfig{
			TradeLog: defaults["inputs.trade_log"].(string),
			DumpLog:  defaults["inputs.dump_log"].(string),
			OrderLog: defaults["inputs.order_log"].(string),
		},
		Output: OutputConfig{Dir: defaults["output.dir"].(string)},
		Traffic: TrafficConfig{
			Direction:   defaults["traffic.direction"].(string),
			MessageName: defaults["traffic.message_name"].(string),
			MessageKind: defaults["traffic.message_kind"].(string),
		},
		Mismatch: MismatchConfig{Mode: defaults["mismatch.mode"].(string)},
		Log: LogConfig{
			Level:      defaults["log.level"].(string),
			Format:     defaults["log.format"].(string),
			MaxSizeMB:  defaults["log.max_size_mb"].(int),
			MaxBackups: defaults["log.max_backups"].(int),
			MaxAgeDays: defaults["log.max_age_days"].(int),
		},
		Server: ServerConfig{
			Port:   defaults["server.port"].(int),
			DBPath: defaults["server.db_path"].(string),
		},
	}
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *Config) Validate() error {
	switch domain.MismatchMode(c.Mismatch.Mode) {
	case domain.ModeStandard, domain.ModeGTAware:
	default:
		return errors.Errorf("mismatch.mode must be %q or %q, got %q",
			domain.ModeStandard, domain.ModeGTAware, c.Mismatch.Mode)
	}

	if c.Inputs.TradeLog == "" || c.Inputs.DumpLog == "" || c.Inputs.OrderLog == "" {
		return errors.New("all input log paths are required")
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir is required")
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Dump renders the configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode config")
	}
	return out, nil
}

// WriteFile saves the configuration as YAML to path.
func (c *Config) WriteFile(path string) error {
	out, err := c.Dump()
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o644), "write %s", path)
}
