package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/fontatlas"
	"github.com/gogpu/atlas/surface"
)

// Config is the TOML configuration file. Flags override it.
//
//	[pack]
//	max_width = 2048
//	concurrency = 8
//	filter = "nearest"
//	backend = "image"
//
//	[pack.headers]
//	Authorization = "Bearer ..."
//
//	[font]
//	size = 48
//	sdf = true
//	charset = "0123456789"
type Config struct {
	Pack PackConfig `toml:"pack"`
	Font FontConfig `toml:"font"`
}

// PackConfig configures the pack command.
type PackConfig struct {
	MaxWidth    int               `toml:"max_width"`
	Concurrency int               `toml:"concurrency"`
	Filter      string            `toml:"filter"`
	Backend     string            `toml:"backend"`
	CacheSize   int               `toml:"cache_size"`
	Headers     map[string]string `toml:"headers"`
}

// FontConfig configures the font command.
type FontConfig struct {
	Path     string  `toml:"path"`
	Size     float64 `toml:"size"`
	Padding  int     `toml:"padding"`
	MaxWidth int     `toml:"max_width"`
	SDF      bool    `toml:"sdf"`
	Buffer   int     `toml:"buffer"`
	Radius   float64 `toml:"radius"`
	Cutoff   float64 `toml:"cutoff"`
	Charset  string  `toml:"charset"`
	Measurer string  `toml:"measurer"`
	Filter   string  `toml:"filter"`
}

// defaultConfig mirrors the library defaults.
func defaultConfig() Config {
	fc := fontatlas.DefaultConfig()
	return Config{
		Pack: PackConfig{
			MaxWidth:    atlas.DefaultMaxSurfaceWidth,
			Concurrency: atlas.DefaultMaxConcurrentFetches,
			Filter:      "linear",
			Backend:     "image",
		},
		Font: FontConfig{
			Size:     fc.FontSize,
			Padding:  fc.Padding,
			MaxWidth: fc.MaxWidth,
			Buffer:   fc.Buffer,
			Radius:   fc.Radius,
			Cutoff:   fc.Cutoff,
			Measurer: "opentype",
			Filter:   "linear",
		},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys: %s", filepath.Base(path), strings.Join(keys, ", "))
	}
	return cfg, nil
}

// parseFilter maps "linear" and "nearest" to sampler state.
func parseFilter(name string) (surface.Filtering, error) {
	f := surface.DefaultFiltering()
	switch strings.ToLower(name) {
	case "", "linear":
	case "nearest":
		f.Min = gputypes.FilterModeNearest
		f.Mag = gputypes.FilterModeNearest
		f.Mipmap = gputypes.FilterModeNearest
	default:
		return f, fmt.Errorf("unknown filter %q (want linear or nearest)", name)
	}
	return f, nil
}
