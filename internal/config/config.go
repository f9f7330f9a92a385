package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "adtkit.yaml"

// System describes the remote ABAP system.
type System struct {
	URL      string        `yaml:"url" json:"url" mapstructure:"url"`
	Client   string        `yaml:"client" json:"client" mapstructure:"client"`
	User     string        `yaml:"user" json:"user" mapstructure:"user"`
	Password string        `yaml:"password" json:"password" mapstructure:"password"`
	Language string        `yaml:"language" json:"language" mapstructure:"language"`
	Insecure bool          `yaml:"insecure" json:"insecure" mapstructure:"insecure"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// Session selects where session blobs are persisted between calls.
type Session struct {
	// Store is one of "memory", "file" or "redis".
	Store    string        `yaml:"store" json:"store" mapstructure:"store"`
	Dir      string        `yaml:"dir" json:"dir" mapstructure:"dir"`
	RedisURL string        `yaml:"redis_url" json:"redis_url" mapstructure:"redis_url"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl" json:"lock_ttl" mapstructure:"lock_ttl"`
	// Key is a base64 AES-256 key; when set, cookies and tokens are encrypted at rest.
	Key string `yaml:"key" json:"key" mapstructure:"key"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr" json:"addr" mapstructure:"addr"`
}

// Journal configures the transaction journal. An empty Path disables it.
type Journal struct {
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// Log configures the application logger.
type Log struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Docs points to the loam repository used by "push".
type Docs struct {
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// Config is the full application configuration.
type Config struct {
	System  System  `yaml:"system" json:"system" mapstructure:"system"`
	Session Session `yaml:"session" json:"session" mapstructure:"session"`
	Server  Server  `yaml:"server" json:"server" mapstructure:"server"`
	Journal Journal `yaml:"journal" json:"journal" mapstructure:"journal"`
	Log     Log     `yaml:"log" json:"log" mapstructure:"log"`
	Docs    Docs    `yaml:"docs" json:"docs" mapstructure:"docs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		System: System{
			Client:   "100",
			Language: "EN",
			Timeout:  60 * time.Second,
		},
		Session: Session{
			Store:   "file",
			Dir:     ".adtkit/sessions",
			TTL:     30 * time.Minute,
			LockTTL: 2 * time.Minute,
		},
		Server:  Server{Addr: ":8080"},
		Journal: Journal{Path: ".adtkit/journal.db"},
		Log:     Log{Level: "info", Format: "text"},
		Docs:    Docs{Path: "."},
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
			return cfg, err
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode parses data as JSON (ext ".json") or YAML into cfg, keeping fields the data does not set.
// Durations accept Go syntax ("30s", "2m").
func Decode(data []byte, ext string, cfg *Config) error {
	raw := map[string]any{}
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config yaml: %w", err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ApplyEnv overrides the system settings from ADT_* environment variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"ADT_URL":         &cfg.System.URL,
		"ADT_CLIENT":      &cfg.System.Client,
		"ADT_USER":        &cfg.System.User,
		"ADT_PASSWORD":    &cfg.System.Password,
		"ADT_LANGUAGE":    &cfg.System.Language,
		"ADT_REDIS":       &cfg.Session.RedisURL,
		"ADT_SESSION_KEY": &cfg.Session.Key,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("ADT_INSECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ADT_INSECURE %q: %w", v, err)
		}
		cfg.System.Insecure = b
	}
	return nil
}

// Validate reports settings that would make every remote call fail.
func (c Config) Validate() error {
	if c.System.URL == "" {
		return fmt.Errorf("system url is required (set system.url or ADT_URL)")
	}
	switch c.Session.Store {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown session store %q (want memory, file or redis)", c.Session.Store)
	}
	if c.Session.Store == "redis" && c.Session.RedisURL == "" {
		return fmt.Errorf("session.redis_url is required for the redis store")
	}
	return nil
}
