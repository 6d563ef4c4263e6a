// Package config loads edabot settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fwojciec/edabot"
)

// Providers lists the accepted provider names. Empty means auto-detect from
// the API keys present in the environment.
var Providers = []string{"anthropic", "gemini", "openai"}

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full edabot configuration.
type Config struct {
	Debug bool `toml:"debug"`

	LLM     LLM     `toml:"llm"`
	Python  Python  `toml:"python"`
	Dataset Dataset `toml:"dataset"`
	Imgur   Imgur   `toml:"imgur"`
	Server  Server  `toml:"server"`

	// ResponseLimit bounds the answer text in characters.
	ResponseLimit int `toml:"response_limit"`
}

// LLM configures the completion stage.
type LLM struct {
	Provider    string   `toml:"provider"`
	Model       string   `toml:"model"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	MaxTokens   int      `toml:"max_tokens"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
}

// Python configures the interpreter worker.
type Python struct {
	Path           string   `toml:"path"`
	Timeout        Duration `toml:"timeout"`
	MaxOutputBytes int      `toml:"max_output_bytes"`
}

// Dataset configures attachment loading and the prompt preview.
type Dataset struct {
	MaxBytes    int64 `toml:"max_bytes"`
	PreviewRows int   `toml:"preview_rows"`
}

// Imgur configures chart export. Charts are not exported without a client id.
type Imgur struct {
	ClientID string `toml:"client_id"`
	Endpoint string `toml:"endpoint"`
}

// Server configures the HTTP transport.
type Server struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLM{
			Temperature: edabot.DefaultTemperature,
			Timeout:     Duration{edabot.DefaultCompletionTimeout},
		},
		Python: Python{
			Path:           "python3",
			Timeout:        Duration{60 * time.Second},
			MaxOutputBytes: 1 << 20,
		},
		Dataset: Dataset{
			MaxBytes:    50 << 20,
			PreviewRows: edabot.DefaultPreviewRows,
		},
		Imgur: Imgur{
			Endpoint: "https://api.imgur.com/3/image",
		},
		Server: Server{
			ListenAddr: ":8080",
		},
		ResponseLimit: edabot.DefaultResponseLimit,
	}
}

// Decode parses TOML over the defaults. Unknown keys are an error.
func Decode(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w: %w", edabot.ErrValidation, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: %w: unknown keys: %s", edabot.ErrValidation, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Load reads the file at path. An empty path yields the defaults, and so does
// a missing file when optional is set.
func Load(path string, optional bool) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Decode(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from EDABOT_* variables. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("EDABOT_PROVIDER", &c.LLM.Provider)
	str("EDABOT_MODEL", &c.LLM.Model)
	str("EDABOT_API_KEY", &c.LLM.APIKey)
	str("EDABOT_BASE_URL", &c.LLM.BaseURL)
	str("EDABOT_PYTHON", &c.Python.Path)
	str("EDABOT_IMGUR_CLIENT_ID", &c.Imgur.ClientID)
	str("EDABOT_LISTEN_ADDR", &c.Server.ListenAddr)

	if v := getenv("EDABOT_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: EDABOT_DEBUG: %w: %w", edabot.ErrValidation, err)
		}
		c.Debug = b
	}
	if v := getenv("EDABOT_EXEC_TIMEOUT"); v != "" {
		if err := c.Python.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: EDABOT_EXEC_TIMEOUT: %w: %w", edabot.ErrValidation, err)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.LLM.Provider != "" && !slices.Contains(Providers, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider %q must be one of %s", c.LLM.Provider, strings.Join(Providers, ", ")))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v out of range [0, 2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, errors.New("llm.max_tokens must not be negative"))
	}
	if c.LLM.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.Python.Path == "" {
		errs = append(errs, errors.New("python.path is required"))
	}
	if c.Python.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("python.timeout must be positive"))
	}
	if c.Python.MaxOutputBytes <= 0 {
		errs = append(errs, errors.New("python.max_output_bytes must be positive"))
	}
	if c.Dataset.MaxBytes <= 0 {
		errs = append(errs, errors.New("dataset.max_bytes must be positive"))
	}
	if c.Dataset.PreviewRows < 0 {
		errs = append(errs, errors.New("dataset.preview_rows must not be negative"))
	}
	if c.ResponseLimit <= 0 {
		errs = append(errs, errors.New("response_limit must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w: %w", edabot.ErrValidation, errors.Join(errs...))
	}
	return nil
}
