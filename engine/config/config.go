// Package config loads engine settings from TOML files. Example binaries use
// it to tune the scene and renderer without recompiling; every field has a
// default so an empty or absent file is valid.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root of the TOML document.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Scene    SceneConfig    `toml:"scene"`
	Renderer RendererConfig `toml:"renderer"`
}

// WindowConfig configures the window the engine opens.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// SceneConfig configures spatial indexing and culling.
type SceneConfig struct {
	ChunkSize      float32 `toml:"chunk_size"`
	RenderDistance int     `toml:"render_distance"`
	SoftCulling    bool    `toml:"soft_culling"`
	MaxObjects     int     `toml:"max_objects"`
}

// RendererConfig configures presentation and anti-aliasing.
type RendererConfig struct {
	// VSync selects the VSync present mode when true, uncapped when false.
	VSync bool `toml:"vsync"`

	// MSAA is the multisample count: 1 (off), 4, 8, or 16.
	MSAA uint32 `toml:"msaa"`

	// ForceSoftware forces the CPU fallback adapter.
	ForceSoftware bool `toml:"force_software"`
}

// Default returns the configuration used when fields (or the whole file) are
// absent.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "Strata",
			Width:  1280,
			Height: 720,
		},
		Scene: SceneConfig{
			ChunkSize:      10,
			RenderDistance: 4,
			SoftCulling:    false,
			MaxObjects:     1024,
		},
		Renderer: RendererConfig{
			VSync: true,
			MSAA:  4,
		},
	}
}

// Load reads a TOML file and overlays it on the defaults. A missing file is
// not an error: the defaults are returned unchanged.
//
// Parameters:
//   - path: the TOML file path
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file exists but cannot be read or parsed
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills zero-valued numeric fields so a sparse file cannot
// produce a degenerate configuration.
func (c Config) withDefaults() Config {
	def := Default()
	if c.Window.Title == "" {
		c.Window.Title = def.Window.Title
	}
	if c.Window.Width <= 0 {
		c.Window.Width = def.Window.Width
	}
	if c.Window.Height <= 0 {
		c.Window.Height = def.Window.Height
	}
	if c.Scene.ChunkSize <= 0 {
		c.Scene.ChunkSize = def.Scene.ChunkSize
	}
	if c.Scene.RenderDistance <= 0 {
		c.Scene.RenderDistance = def.Scene.RenderDistance
	}
	if c.Scene.MaxObjects <= 0 {
		c.Scene.MaxObjects = def.Scene.MaxObjects
	}
	if c.Renderer.MSAA == 0 {
		c.Renderer.MSAA = def.Renderer.MSAA
	}
	return c
}
