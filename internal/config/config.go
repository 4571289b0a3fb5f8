// Package config reads the yaml configuration file. Values are looked up
// by colon separated paths ("storage:s3:bucket") and resolved into a
// typed Config with defaults for everything left out.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "config/coopcanvas.yml"

// Tree is the raw parsed configuration file.
type Tree map[interface{}]interface{}

// LoadTree parses the file at path. A missing file yields an empty tree.
func LoadTree(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Tree{}, nil
	} else if err != nil {
		return nil, err
	}

	t := Tree{}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return t, nil
}

// Key returns the value at a colon separated path or nil.
func (t Tree) Key(key string) interface{} {
	keys := strings.Split(key, ":")
	c := map[interface{}]interface{}(t)
	for i := 0; i < len(keys)-1; i++ {
		sub, ok := c[keys[i]].(map[interface{}]interface{})
		if !ok {
			return nil
		}
		c = sub
	}

	return c[keys[len(keys)-1]]
}

func (t Tree) String(key, def string) string {
	switch v := t.Key(key).(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	}

	return def
}

func (t Tree) Int(key string, def int) int {
	switch v := t.Key(key).(type) {
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}

func (t Tree) Bool(key string, def bool) bool {
	if v, ok := t.Key(key).(bool); ok {
		return v
	}

	return def
}

// Duration accepts Go duration strings ("90s") or a plain number of seconds.
func (t Tree) Duration(key string, def time.Duration) time.Duration {
	switch v := t.Key(key).(type) {
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}

	return def
}

type S3 struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Storage struct {
	Backend string // file, sqlite, postgres or s3
	Path    string
	DSN     string
	S3      S3
	Mirror  string // optional second backend receiving every save
}

type Config struct {
	Host      string
	Port      int
	Transport string

	Width, Height int
	MaxLayers     int

	AutosaveInterval time.Duration
	PollInterval     time.Duration
	ExplicitRejects  bool
	SessionQueue     int

	Storage Storage

	AdminListen string

	MDNS         bool
	MDNSInstance string
}

// Resolve fills a Config from t.
func Resolve(t Tree) *Config {
	host, _ := os.Hostname()

	c := &Config{
		Host:      t.String("host", ""),
		Port:      t.Int("port", 6769),
		Transport: t.String("transport", "rudp"),

		Width:     t.Int("width", 640),
		Height:    t.Int("height", 480),
		MaxLayers: t.Int("max_layers", 15),

		AutosaveInterval: t.Duration("autosave_interval", time.Minute),
		PollInterval:     t.Duration("poll_interval", time.Second),
		ExplicitRejects:  t.Bool("explicit_rejects", true),
		SessionQueue:     t.Int("session_queue", 256),

		Storage: Storage{
			Backend: t.String("storage:backend", "file"),
			Path:    t.String("storage:path", ""),
			DSN:     t.String("storage:dsn", ""),
			Mirror:  t.String("storage:mirror", ""),
			S3: S3{
				Bucket:    t.String("storage:s3:bucket", ""),
				Key:       t.String("storage:s3:key", "canvas.json"),
				Region:    t.String("storage:s3:region", "us-east-1"),
				Endpoint:  t.String("storage:s3:endpoint", ""),
				AccessKey: t.String("storage:s3:access_key", ""),
				SecretKey: t.String("storage:s3:secret_key", ""),
			},
		},

		AdminListen: t.String("admin:listen", "127.0.0.1:6780"),

		MDNS:         t.Bool("mdns:enabled", false),
		MDNSInstance: t.String("mdns:instance", host),
	}

	if c.MDNSInstance == "" {
		c.MDNSInstance = host
	}

	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case "sqlite":
			c.Storage.Path = "storage/canvas.sqlite"
		default:
			c.Storage.Path = "canvas.json"
		}
	}

	return c
}

// Validate rejects values the server can't run with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port+256 > 65535:
		return fmt.Errorf("config: port %d leaves no room for canvas ports", c.Port)
	case c.Width <= 0 || c.Height <= 0 || c.Width > 65535 || c.Height > 65535:
		return fmt.Errorf("config: bad canvas size %dx%d", c.Width, c.Height)
	case c.MaxLayers < 2 || c.MaxLayers > 255:
		return fmt.Errorf("config: max_layers must be within 2..255, got %d", c.MaxLayers)
	case c.PollInterval <= 0:
		return fmt.Errorf("config: poll_interval must be positive")
	case c.SessionQueue <= 0:
		return fmt.Errorf("config: session_queue must be positive")
	}

	switch c.Transport {
	case "rudp", "tcp":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}

	return nil
}

// Load reads and resolves the file at path.
func Load(path string) (*Config, error) {
	t, err := LoadTree(path)
	if err != nil {
		return nil, err
	}

	c := Resolve(t)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Addr is the control channel address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
