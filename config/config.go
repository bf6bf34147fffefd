// Package config loads dictate settings from a YAML file, .env and
// DICTATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"dictate/recorder"
	"dictate/session"
	"dictate/uploader"
)

const EnvPrefix = "DICTATE"

type Recorder struct {
	Command   []string `mapstructure:"command" validate:"required,min=1"`
	TempDir   string   `mapstructure:"temp_dir"`
	Extension string   `mapstructure:"extension" validate:"required,alphanum"`
}

type Uploader struct {
	Binary   string        `mapstructure:"binary" validate:"required"`
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Model    string        `mapstructure:"model" validate:"required"`
	Language string        `mapstructure:"language" validate:"omitempty,alpha,max=3"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type Config struct {
	MaxDuration     time.Duration `mapstructure:"max_duration" validate:"gt=0"`
	Recorder        Recorder      `mapstructure:"recorder"`
	Uploader        Uploader      `mapstructure:"uploader"`
	APIKey          string        `mapstructure:"api_key"`
	Login           string        `mapstructure:"login" validate:"required"`
	Netrc           string        `mapstructure:"netrc"`
	KeepFailedAudio bool          `mapstructure:"keep_failed_audio"`
	Target          string        `mapstructure:"target" validate:"required,target"`
	Beep            bool          `mapstructure:"beep"`
	TranscriptLog   bool          `mapstructure:"transcript_log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_duration", session.DefaultMaxDuration)
	v.SetDefault("recorder.command", recorder.DefaultCommand)
	v.SetDefault("recorder.temp_dir", "")
	v.SetDefault("recorder.extension", "wav")
	v.SetDefault("uploader.binary", uploader.DefaultBinary)
	v.SetDefault("uploader.endpoint", uploader.DefaultEndpoint)
	v.SetDefault("uploader.model", uploader.DefaultModel)
	v.SetDefault("uploader.language", "")
	v.SetDefault("uploader.timeout", 90*time.Second)
	v.SetDefault("api_key", "")
	v.SetDefault("login", session.DefaultLogin)
	v.SetDefault("netrc", "")
	v.SetDefault("keep_failed_audio", false)
	v.SetDefault("target", "clipboard")
	v.SetDefault("beep", true)
	v.SetDefault("transcript_log", true)
}

// Dir is where config.yaml is looked up when no path is given.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "dictate")
}

// Load reads path, or config.yaml in Dir when path is empty. A missing
// default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Recorder.Extension = strings.TrimPrefix(cfg.Recorder.Extension, ".")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SessionConfig() session.Config {
	return session.Config{
		MaxDuration:     c.MaxDuration,
		Endpoint:        c.Uploader.Endpoint,
		Credential:      c.APIKey,
		Login:           c.Login,
		TempDir:         c.Recorder.TempDir,
		Extension:       c.Recorder.Extension,
		KeepFailedAudio: c.KeepFailedAudio,
	}
}

func (c *Config) UploaderConfig() uploader.Config {
	return uploader.Config{
		Binary:   c.Uploader.Binary,
		Model:    c.Uploader.Model,
		Language: c.Uploader.Language,
		Timeout:  c.Uploader.Timeout,
	}
}
