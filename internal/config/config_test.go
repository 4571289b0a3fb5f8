package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
port: 7000
transport: tcp
width: 320
autosave_interval: 90s
poll_interval: 2
explicit_rejects: false
storage:
  backend: sqlite
  s3:
    bucket: canvases
    endpoint: http://127.0.0.1:9000
admin:
  listen: ":8080"
mdns:
  enabled: true
  instance: studio
`

func TestKey(t *testing.T) {
	tree := Tree{
		"port": 1,
		"storage": map[interface{}]interface{}{
			"s3": map[interface{}]interface{}{"bucket": "b"},
		},
	}

	tests := []struct {
		key  string
		want interface{}
	}{
		{"port", 1},
		{"storage:s3:bucket", "b"},
		{"storage:s3:missing", nil},
		{"port:deeper", nil},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tree.Key(tt.key); got != tt.want {
				t.Errorf("Key(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coopcanvas.yml")
	if err := os.WriteFile(path, []byte(sample), 0666); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if c.Port != 7000 || c.Transport != "tcp" || c.Width != 320 || c.Height != 480 {
		t.Errorf("got port %d transport %s size %dx%d", c.Port, c.Transport, c.Width, c.Height)
	}
	if c.AutosaveInterval != 90*time.Second || c.PollInterval != 2*time.Second {
		t.Errorf("got intervals %v %v", c.AutosaveInterval, c.PollInterval)
	}
	if c.ExplicitRejects {
		t.Error("explicit_rejects should be off")
	}
	if c.Storage.Backend != "sqlite" || c.Storage.Path != "storage/canvas.sqlite" {
		t.Errorf("storage = %+v", c.Storage)
	}
	if c.Storage.S3.Bucket != "canvases" || c.Storage.S3.Key != "canvas.json" {
		t.Errorf("s3 = %+v", c.Storage.S3)
	}
	if c.AdminListen != ":8080" || !c.MDNS || c.MDNSInstance != "studio" {
		t.Errorf("admin %q mdns %v %q", c.AdminListen, c.MDNS, c.MDNSInstance)
	}
	if c.Addr() != ":7000" {
		t.Errorf("Addr() = %q", c.Addr())
	}
}

func TestDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatal(err)
	}

	if c.Port != 6769 || c.Width != 640 || c.Height != 480 || c.MaxLayers != 15 {
		t.Errorf("defaults = %+v", c)
	}
	if !c.ExplicitRejects || c.Storage.Backend != "file" || c.Storage.Path != "canvas.json" {
		t.Errorf("defaults = %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 65500 }},
		{"size", func(c *Config) { c.Width = 0 }},
		{"layers", func(c *Config) { c.MaxLayers = 1 }},
		{"poll", func(c *Config) { c.PollInterval = 0 }},
		{"transport", func(c *Config) { c.Transport = "smoke" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Resolve(Tree{})
			tt.edit(c)
			if c.Validate() == nil {
				t.Error("expected error")
			}
		})
	}
}
