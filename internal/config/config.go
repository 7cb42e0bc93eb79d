// Package config loads and validates the simulation configuration. Files may
// be JSON, YAML or TOML; every format is normalised to JSON and checked
// against the embedded schema before it is decoded over the defaults.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/flock"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/swarm"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every semantic validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("flock.schema.json", schemaJSON)
})

// Supported file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

type Config struct {
	// World dimensions; Depth is used only when Dimension is 3
	Dimension int     `json:"dimension"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Depth     float64 `json:"depth"`

	Population int `json:"population"`
	// Seed 0 picks a time based seed
	Seed uint64 `json:"seed"`
	// TickRate is the number of ticks per second when running in real time
	TickRate int `json:"tickRate"`

	Obstacles []Obstacle  `json:"obstacles,omitempty"`
	Path      *PathConfig `json:"path,omitempty"`

	Flock flock.Params `json:"flock"`
}

// Obstacle is either a polygon (2D only) or a sphere given by Center and
// Radius.
type Obstacle struct {
	Polygon [][]float64 `json:"polygon,omitempty"`
	Center  []float64   `json:"center,omitempty"`
	Radius  float64     `json:"radius,omitempty"`
}

type PathConfig struct {
	Points [][]float64 `json:"points"`
	Closed bool        `json:"closed,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Dimension:  2,
		Width:      1000,
		Height:     800,
		Depth:      800,
		Population: 500,
		TickRate:   60,
		Flock:      flock.DefaultParams(),
	}
}

// FormatFromPath maps a file extension to one of the Format constants.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config extension %q", ext)
	}
}

// Load reads path, validates it against the schema and returns the defaults
// overridden by the file.
func Load(path string) (*Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(b, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data written in format.
func Parse(data []byte, format string) (*Config, error) {
	var doc interface{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		m := map[string]interface{}{}
		err = toml.Unmarshal(data, &m)
		doc = m
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", format, err)
	}
	if doc == nil {
		// an empty file keeps every default
		doc = map[string]interface{}{}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(normalized, &v); err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(normalized, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks what the schema cannot express, and everything else again
// for configurations built in code or changed by flags.
func (c *Config) Validate() error {
	if c.Dimension != 2 && c.Dimension != 3 {
		return fmt.Errorf("%w: dimension must be 2 or 3, got %d", ErrInvalidConfig, c.Dimension)
	}
	if c.Width <= 0 || c.Height <= 0 || (c.Dimension == 3 && c.Depth <= 0) {
		return fmt.Errorf("%w: world extents must be positive", ErrInvalidConfig)
	}
	if c.Population < 0 {
		return fmt.Errorf("%w: negative population %d", ErrInvalidConfig, c.Population)
	}
	if c.TickRate < 1 {
		return fmt.Errorf("%w: tickRate must be at least 1", ErrInvalidConfig)
	}
	for i, o := range c.Obstacles {
		if err := o.validate(c.Dimension); err != nil {
			return fmt.Errorf("%w: obstacle %d: %v", ErrInvalidConfig, i, err)
		}
	}
	if c.Path != nil {
		if len(c.Path.Points) == 0 {
			return fmt.Errorf("%w: path has no points", ErrInvalidConfig)
		}
		for i, p := range c.Path.Points {
			if len(p) != c.Dimension {
				return fmt.Errorf("%w: path point %d has %d coordinates, want %d", ErrInvalidConfig, i, len(p), c.Dimension)
			}
		}
	}
	return c.Flock.Validate()
}

func (o Obstacle) validate(dim int) error {
	switch {
	case o.Polygon != nil && o.Center != nil:
		return errors.New("polygon and center are exclusive")
	case o.Polygon != nil:
		if dim != 2 {
			return errors.New("polygons need dimension 2")
		}
		if len(o.Polygon) < 3 {
			return fmt.Errorf("polygon has %d points, want at least 3", len(o.Polygon))
		}
		for _, p := range o.Polygon {
			if len(p) != 2 {
				return fmt.Errorf("polygon point %v is not 2D", p)
			}
		}
	case o.Center != nil:
		if len(o.Center) != dim {
			return fmt.Errorf("center %v has %d coordinates, want %d", o.Center, len(o.Center), dim)
		}
		if o.Radius <= 0 {
			return fmt.Errorf("radius %g must be positive", o.Radius)
		}
	default:
		return errors.New("neither polygon nor center given")
	}
	return nil
}

// Encode writes c in format.
func (c *Config) Encode(w io.Writer, format string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if format == FormatJSON {
		_, err = w.Write(append(b, '\n'))
		return err
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(m); err != nil {
			return err
		}
		_, err = buf.WriteTo(w)
		return err
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}

func point[V geometry.Vector[V]](coords []float64) V {
	var v V
	for i := 0; i < min(len(coords), v.Dim()); i++ {
		v = v.WithAxis(i, coords[i])
	}
	return v
}

func world[V geometry.Vector[V]](c *Config) (swarm.World[V], error) {
	bounds, err := geometry.NewBox(geometry.Uniform[V](0), point[V]([]float64{c.Width, c.Height, c.Depth}))
	if err != nil {
		return swarm.World[V]{}, err
	}
	w := swarm.World[V]{Bounds: bounds, Params: c.Flock}
	for _, o := range c.Obstacles {
		if o.Center != nil {
			w.Obstacles = append(w.Obstacles, geometry.Sphere[V]{Center: point[V](o.Center), Radius: o.Radius})
		}
	}
	if c.Path != nil {
		points := make([]V, len(c.Path.Points))
		for i, p := range c.Path.Points {
			points[i] = point[V](p)
		}
		pl, err := flock.NewPolyline(points, c.Path.Closed)
		if err != nil {
			return swarm.World[V]{}, err
		}
		w.Path = pl
	}
	return w, nil
}

// World2D builds the 2D world c describes.
func (c *Config) World2D() (swarm.World[geometry.Vector2D], error) {
	if c.Dimension != 2 {
		return swarm.World[geometry.Vector2D]{}, fmt.Errorf("%w: configuration is %dD", ErrInvalidConfig, c.Dimension)
	}
	w, err := world[geometry.Vector2D](c)
	if err != nil {
		return w, err
	}
	for _, o := range c.Obstacles {
		if o.Polygon == nil {
			continue
		}
		poly := make(geometry.Polygon, len(o.Polygon))
		for i, p := range o.Polygon {
			poly[i] = point[geometry.Vector2D](p)
		}
		w.Obstacles = append(w.Obstacles, poly)
	}
	return w, nil
}

// World3D builds the 3D world c describes.
func (c *Config) World3D() (swarm.World[geometry.Vector3D], error) {
	if c.Dimension != 3 {
		return swarm.World[geometry.Vector3D]{}, fmt.Errorf("%w: configuration is %dD", ErrInvalidConfig, c.Dimension)
	}
	return world[geometry.Vector3D](c)
}
