package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Coverage CoverageConfig `yaml:"coverage" mapstructure:"coverage"`
	Solver   SolverConfig   `yaml:"solver" mapstructure:"solver"`
	Generate GenerateConfig `yaml:"generate" mapstructure:"generate"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CoverageConfig sets the default planning parameters. Instance files and
// command-line flags override both.
type CoverageConfig struct {
	ThresholdKm float64 `yaml:"threshold_km" mapstructure:"threshold_km"`
	Budget      int     `yaml:"budget" mapstructure:"budget"`
}

// SolverConfig configures the MILP backend.
type SolverConfig struct {
	Backend       string  `yaml:"backend" mapstructure:"backend"` // highs | cbc | enum
	Binary        string  `yaml:"binary" mapstructure:"binary"`
	TimeLimitSecs int     `yaml:"time_limit_secs" mapstructure:"time_limit_secs"`
	GapTolerance  float64 `yaml:"gap_tolerance" mapstructure:"gap_tolerance"`
	Threads       int     `yaml:"threads" mapstructure:"threads"`
	WorkDir       string  `yaml:"work_dir" mapstructure:"work_dir"`
	KeepFiles     bool    `yaml:"keep_files" mapstructure:"keep_files"`
	TieBreak      bool    `yaml:"tie_break" mapstructure:"tie_break"`
}

// GenerateConfig configures synthetic instance generation.
type GenerateConfig struct {
	Seed       int64   `yaml:"seed" mapstructure:"seed"`
	Households int     `yaml:"households" mapstructure:"households"`
	Existing   int     `yaml:"existing" mapstructure:"existing"`
	Candidates int     `yaml:"candidates" mapstructure:"candidates"`
	Region     float64 `yaml:"region_km" mapstructure:"region_km"`
	Noise      float64 `yaml:"noise_km" mapstructure:"noise_km"`
}

// StoreConfig configures the plan store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks configuration consistency for the given command mode.
// Modes: "solve", "serve", "plans".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Solver.Backend {
	case "highs", "cbc", "enum":
	default:
		problems = append(problems, "solver.backend must be one of highs, cbc, enum")
	}
	if c.Solver.TimeLimitSecs <= 0 {
		problems = append(problems, "solver.time_limit_secs must be > 0")
	}
	if c.Solver.GapTolerance < 0 || c.Solver.GapTolerance >= 1 {
		problems = append(problems, "solver.gap_tolerance must be in [0, 1)")
	}
	if c.Solver.Threads < 0 {
		problems = append(problems, "solver.threads must be >= 0")
	}

	switch mode {
	case "solve":
		if c.Coverage.ThresholdKm <= 0 {
			problems = append(problems, "coverage.threshold_km must be > 0")
		}
		if c.Coverage.Budget < 0 {
			problems = append(problems, "coverage.budget must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		problems = append(problems, c.validateStore()...)
	case "plans":
		problems = append(problems, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return []string{"store.path is required for the sqlite driver"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("coverage.threshold_km", 10.0)
	v.SetDefault("coverage.budget", 5)
	v.SetDefault("solver.backend", "highs")
	v.SetDefault("solver.time_limit_secs", 300)
	v.SetDefault("solver.gap_tolerance", 0.0)
	v.SetDefault("solver.threads", 0)
	v.SetDefault("solver.keep_files", false)
	v.SetDefault("solver.tie_break", false)
	v.SetDefault("generate.seed", 42)
	v.SetDefault("generate.households", 20000)
	v.SetDefault("generate.existing", 15)
	v.SetDefault("generate.candidates", 100)
	v.SetDefault("generate.region_km", 100.0)
	v.SetDefault("generate.noise_km", 10.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "covplan.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
