package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Dir is the name of the project and user configuration directories.
const Dir = ".vagent"

// EnvPrefix prefixes every environment override, e.g. VAGENT_MAX_CONCURRENCY.
const EnvPrefix = "VAGENT_"

// Config is the top-level configuration structure.
type Config struct {
	DefaultPipeline string         `yaml:"default_pipeline" env:"DEFAULT_PIPELINE, overwrite" validate:"required"`
	OutputDir       string         `yaml:"output_dir" env:"OUTPUT_DIR, overwrite"`
	MaxConcurrency  int            `yaml:"max_concurrency" env:"MAX_CONCURRENCY, overwrite" validate:"gte=1,lte=64"`
	FailurePolicy   string         `yaml:"failure_policy" env:"FAILURE_POLICY, overwrite" validate:"oneof=strict best_effort"`
	Timeout         string         `yaml:"timeout" env:"TIMEOUT, overwrite" validate:"omitempty,duration"`
	StepTimeout     string         `yaml:"step_timeout" env:"STEP_TIMEOUT, overwrite" validate:"omitempty,duration"`
	Provider        ProviderConfig `yaml:"provider" env:",prefix=PROVIDER_"`
	Chat            ChatConfig     `yaml:"chat" env:",prefix=CHAT_"`
	Tools           ToolsConfig    `yaml:"tools" env:",prefix=TOOLS_"`
	ModelsFile      string         `yaml:"models_file" env:"MODELS_FILE, overwrite"`
	HistoryDB       string         `yaml:"history_db" env:"HISTORY_DB, overwrite"`
	LogLevel        string         `yaml:"log_level" env:"LOG_LEVEL, overwrite" validate:"oneof=debug info warn error"`
}

// ProviderConfig configures the generic media generation back-end.
type ProviderConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT, overwrite" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env" env:"API_KEY_ENV, overwrite" validate:"required"`
	Timeout     string `yaml:"timeout" env:"TIMEOUT, overwrite" validate:"omitempty,duration"`
	MaxAttempts int    `yaml:"max_attempts" env:"MAX_ATTEMPTS, overwrite" validate:"gte=1,lte=10"`
}

// ChatConfig configures the OpenRouter-compatible chat back-end used for
// text_to_text steps.
type ChatConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT, overwrite" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env" env:"API_KEY_ENV, overwrite" validate:"required"`
	Timeout   string `yaml:"timeout" env:"TIMEOUT, overwrite" validate:"omitempty,duration"`
}

// ToolsConfig names local binaries used by processing steps.
type ToolsConfig struct {
	FFmpeg string `yaml:"ffmpeg" env:"FFMPEG, overwrite" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "duration":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a duration", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: %v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// APIKey returns the resolved provider API key.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return os.Getenv("FAL_KEY")
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// ChatAPIKey returns the resolved chat API key.
func (c *Config) ChatAPIKey() string {
	if c.Chat.APIKeyEnv == "" {
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return os.Getenv(c.Chat.APIKeyEnv)
}

// RunTimeout is the overall run deadline; zero means none.
func (c *Config) RunTimeout() time.Duration { return parseDuration(c.Timeout) }

// StepTimeoutDuration bounds one provider call; zero means none.
func (c *Config) StepTimeoutDuration() time.Duration { return parseDuration(c.StepTimeout) }

// ProviderTimeout is the HTTP client timeout for the media provider.
func (c *Config) ProviderTimeout() time.Duration { return parseDuration(c.Provider.Timeout) }

// ChatTimeout is the HTTP client timeout for the chat provider.
func (c *Config) ChatTimeout() time.Duration { return parseDuration(c.Chat.Timeout) }

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ProjectDir is the project-level configuration directory.
func ProjectDir() string { return Dir }

// UserDir is the user-level configuration directory, or "" when the home
// directory cannot be determined.
func UserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, Dir)
}

// Load resolves config from defaults → user → project → environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, UserDir(), ProjectDir(), envconfig.PrefixLookuper(EnvPrefix, envconfig.OsLookuper()))
}

func load(ctx context.Context, userDir, projectDir string, env envconfig.Lookuper) (*Config, error) {
	cfg := Defaults()

	// user-level config
	if userDir != "" {
		userPath := filepath.Join(userDir, "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	// project-level config
	projectPath := filepath.Join(projectDir, "config.yaml")
	if err := mergeFile(cfg, projectPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	// environment (highest priority)
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: env}); err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	return cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Secrets never live in config files.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		for _, section := range []string{"provider", "chat"} {
			if m, ok := raw[section].(map[string]interface{}); ok {
				if _, hasKey := m["api_key"]; hasKey {
					return fmt.Errorf("configuration field '%s.api_key' is not supported. "+
						"Remove it from %s and export the variable named by %s.api_key_env instead.", section, path, section)
				}
			}
		}
	}
	return yaml.Unmarshal(data, dst)
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DefaultPipeline: "text-to-video",
		MaxConcurrency:  4,
		FailurePolicy:   "strict",
		StepTimeout:     "10m",
		Provider: ProviderConfig{
			Endpoint:    "https://fal.run",
			APIKeyEnv:   "FAL_KEY",
			Timeout:     "600s",
			MaxAttempts: 3,
		},
		Chat: ChatConfig{
			Endpoint:  "https://openrouter.ai/api/v1",
			APIKeyEnv: "OPENROUTER_API_KEY",
			Timeout:   "300s",
		},
		Tools: ToolsConfig{
			FFmpeg: "ffmpeg",
		},
		HistoryDB: filepath.Join(Dir, "history.db"),
		LogLevel:  "info",
	}
}
