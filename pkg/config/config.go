// Package config loads graph topology and tuning from YAML, TOML or JSON
// files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/identigraph/pkg/interaction"
	"github.com/vanderheijden86/identigraph/pkg/model"
	"github.com/vanderheijden86/identigraph/pkg/physics"
	"github.com/vanderheijden86/identigraph/pkg/render"
	"github.com/vanderheijden86/identigraph/pkg/session"
)

// Config is one topology file plus optional tuning blocks.
type Config struct {
	// Canvas is the initial container size for headless rendering.
	Canvas model.Bounds `yaml:"canvas" json:"canvas" toml:"canvas"`

	// Nodes, Edges and Paths describe the topology. When all three are
	// empty the built-in topology is used.
	Nodes []model.NodeSpec `yaml:"nodes,omitempty" json:"nodes,omitempty" toml:"nodes,omitempty"`
	Edges []model.EdgeSpec `yaml:"edges,omitempty" json:"edges,omitempty" toml:"edges,omitempty"`
	Paths []model.PathSpec `yaml:"paths,omitempty" json:"paths,omitempty" toml:"paths,omitempty"`

	// Categories adds categories or overrides fields of built-in ones.
	Categories map[string]CategoryConfig `yaml:"categories,omitempty" json:"categories,omitempty" toml:"categories,omitempty"`

	Physics     physics.Params    `yaml:"physics" json:"physics" toml:"physics"`
	Interaction InteractionConfig `yaml:"interaction" json:"interaction" toml:"interaction"`
	Render      RenderConfig      `yaml:"render" json:"render" toml:"render"`

	// Seed makes jitter reproducible. 0 picks a random seed.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty" toml:"seed,omitempty"`

	// path is the file this config was loaded from, empty for Default.
	path string
}

// CategoryConfig overrides a category's look. Empty fields keep the
// built-in value.
type CategoryConfig struct {
	Label string  `yaml:"label,omitempty" json:"label,omitempty" toml:"label,omitempty"`
	Icon  string  `yaml:"icon,omitempty" json:"icon,omitempty" toml:"icon,omitempty"`
	Size  float64 `yaml:"size,omitempty" json:"size,omitempty" toml:"size,omitempty"`
	Color string  `yaml:"color,omitempty" json:"color,omitempty" toml:"color,omitempty"`
}

// InteractionConfig tunes hover, click and autonomous activation.
type InteractionConfig struct {
	HitMargin    float64  `yaml:"hit_margin" json:"hit_margin" toml:"hit_margin"`
	ClickDecay   Duration `yaml:"click_decay" json:"click_decay" toml:"click_decay"`
	AutoInterval Duration `yaml:"auto_interval" json:"auto_interval" toml:"auto_interval"`
	AutoDecay    Duration `yaml:"auto_decay" json:"auto_decay" toml:"auto_decay"`
	AutoEnabled  bool     `yaml:"auto_enabled" json:"auto_enabled" toml:"auto_enabled"`
}

// RenderConfig tunes frame composition.
type RenderConfig struct {
	CurveBend    float64   `yaml:"curve_bend" json:"curve_bend" toml:"curve_bend"`
	PulsePeriod  Duration  `yaml:"pulse_period" json:"pulse_period" toml:"pulse_period"`
	PulseOffsets []float64 `yaml:"pulse_offsets" json:"pulse_offsets" toml:"pulse_offsets"`
	RingPeriod   Duration  `yaml:"ring_period" json:"ring_period" toml:"ring_period"`
	EaseScale    bool      `yaml:"ease_scale" json:"ease_scale" toml:"ease_scale"`
}

// Duration is a time.Duration written as "3s" or "1500ms" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in topology with the widget's tuning.
func Default() *Config {
	iopts := interaction.DefaultOptions()
	ropts := render.DefaultOptions()
	return &Config{
		Canvas:  model.Bounds{Width: 800, Height: 600},
		Nodes:   DefaultNodes(),
		Edges:   DefaultEdges(),
		Paths:   DefaultPaths(),
		Physics: physics.DefaultParams(),
		Interaction: InteractionConfig{
			HitMargin:    iopts.HitMargin,
			ClickDecay:   Duration{iopts.ClickDecay},
			AutoInterval: Duration{iopts.AutoInterval},
			AutoDecay:    Duration{iopts.AutoDecay},
			AutoEnabled:  iopts.AutoEnabled,
		},
		Render: RenderConfig{
			CurveBend:    ropts.CurveBend,
			PulsePeriod:  Duration{ropts.PulsePeriod},
			PulseOffsets: ropts.PulseOffsets,
			RingPeriod:   Duration{ropts.RingPeriod},
			EaseScale:    true,
		},
	}
}

// Load reads path, decoding by extension (.yaml/.yml, .toml, .json) on top
// of the defaults, so a file only needs the keys it changes. Unknown keys
// are rejected. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(data, Format(path))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	cfg.path = path
	return cfg, nil
}

// Format maps a file name to its decoder name.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	}
	return ""
}

// Parse decodes data in the given format ("yaml", "toml" or "json").
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	// A file that declares any topology replaces the built-in one wholesale.
	cfg.Nodes, cfg.Edges, cfg.Paths = nil, nil, nil

	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.WithHint(errors.Wrap(err, "parsing yaml"),
				"check indentation and that every key is spelled as documented")
		}
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "parsing toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.WithHint(
				errors.Newf("unknown keys: %s", strings.Join(keys, ", ")),
				"remove them or fix their spelling")
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "parsing json")
		}
	default:
		return nil, errors.WithHint(errors.Newf("unsupported config format %q", format),
			"use a .yaml, .yml, .toml or .json file")
	}

	if len(cfg.Nodes) == 0 && len(cfg.Edges) == 0 && len(cfg.Paths) == 0 {
		cfg.Nodes, cfg.Edges, cfg.Paths = DefaultNodes(), DefaultEdges(), DefaultPaths()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// CategorySet merges the overrides onto the built-in palette.
func (c *Config) CategorySet() (model.CategorySet, error) {
	base := model.DefaultCategories()
	if len(c.Categories) == 0 {
		return base, nil
	}
	cerr := &model.ConfigError{}
	over := model.CategorySet{}
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cc := c.Categories[name]
		if name == "" {
			cerr.Problems = append(cerr.Problems, "category with empty name")
			continue
		}
		cat, known := base[name]
		cat.Name = name
		if cc.Label != "" {
			cat.Label = cc.Label
		}
		if cc.Icon != "" {
			cat.Icon = cc.Icon
		}
		if cc.Size != 0 {
			cat.Size = cc.Size
		}
		if cc.Color != "" {
			col, err := model.ParseHex(cc.Color)
			if err != nil {
				cerr.Problems = append(cerr.Problems, fmt.Sprintf("category %q: %v", name, err))
				continue
			}
			cat.Color = col
		}
		if cat.Size <= 0 {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("category %q: size must be positive", name))
			continue
		}
		if !known && cc.Color == "" {
			cerr.Problems = append(cerr.Problems, fmt.Sprintf("category %q: new categories need a color", name))
			continue
		}
		if cat.Icon == "" {
			cat.Icon = strings.ToUpper(string([]rune(name)[:1]))
		}
		over[name] = cat
	}
	if len(cerr.Problems) > 0 {
		return nil, cerr
	}
	return base.Merge(over), nil
}

// Validate checks tuning values and the topology, reporting every problem
// it finds in one error.
func (c *Config) Validate() error {
	var problems []string
	if c.Canvas.IsZero() {
		problems = append(problems, "canvas: width and height must be positive")
	}
	if err := c.Physics.Validate(); err != nil {
		problems = append(problems, "physics: "+err.Error())
	}
	if c.Interaction.HitMargin < 0 {
		problems = append(problems, "interaction: hit_margin must be non-negative")
	}
	for _, d := range []struct {
		name string
		val  Duration
	}{
		{"click_decay", c.Interaction.ClickDecay},
		{"auto_interval", c.Interaction.AutoInterval},
		{"auto_decay", c.Interaction.AutoDecay},
	} {
		if d.val.Duration <= 0 {
			problems = append(problems, fmt.Sprintf("interaction: %s must be positive", d.name))
		}
	}
	if c.Render.CurveBend < 0 {
		problems = append(problems, "render: curve_bend must be non-negative")
	}
	if c.Render.PulsePeriod.Duration <= 0 || c.Render.RingPeriod.Duration <= 0 {
		problems = append(problems, "render: pulse_period and ring_period must be positive")
	}
	for _, off := range c.Render.PulseOffsets {
		if off < 0 || off >= 1 {
			problems = append(problems, fmt.Sprintf("render: pulse offset %g must be in [0,1)", off))
		}
	}

	cats, err := c.CategorySet()
	var cerr *model.ConfigError
	switch {
	case errors.As(err, &cerr):
		problems = append(problems, cerr.Problems...)
	case err == nil:
		if _, err := model.New(c.Nodes, c.Edges, c.Paths, cats, c.Canvas); errors.As(err, &cerr) {
			problems = append(problems, cerr.Problems...)
		}
	}

	if len(problems) > 0 {
		return &model.ConfigError{Problems: problems}
	}
	return nil
}

// SessionOptions converts the config into session options. The caller
// supplies the renderer.
func (c *Config) SessionOptions(logger *zap.Logger) (session.Options, error) {
	cats, err := c.CategorySet()
	if err != nil {
		return session.Options{}, err
	}
	opts := session.DefaultOptions()
	opts.Nodes = c.Nodes
	opts.Edges = c.Edges
	opts.Paths = c.Paths
	opts.Categories = cats
	opts.Bounds = c.Canvas
	opts.Physics = c.Physics
	opts.Interaction.HitMargin = c.Interaction.HitMargin
	opts.Interaction.ClickDecay = c.Interaction.ClickDecay.Duration
	opts.Interaction.AutoInterval = c.Interaction.AutoInterval.Duration
	opts.Interaction.AutoDecay = c.Interaction.AutoDecay.Duration
	opts.Interaction.AutoEnabled = c.Interaction.AutoEnabled
	opts.Render.CurveBend = c.Render.CurveBend
	opts.Render.PulsePeriod = c.Render.PulsePeriod.Duration
	opts.Render.PulseOffsets = c.Render.PulseOffsets
	opts.Render.RingPeriod = c.Render.RingPeriod.Duration
	opts.EaseScale = c.Render.EaseScale
	if c.Physics.JitterAmplitude > 0 {
		seed := c.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		opts.Noise = physics.NewSeededNoise(seed)
	}
	opts.Logger = logger
	return opts, nil
}
