package mesh

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultHTTPPort is used when http.port is unset
const DefaultHTTPPort = 4040

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Glyphs: GlyphConfig{
			Filled: string(DefaultFilledGlyph),
			Empty:  string(DefaultEmptyGlyph),
		},
		HTTP:   HTTPConfig{Port: DefaultHTTPPort},
		MQTT:   MQTTConfig{PublishPrefix: DefaultPublishPrefix},
		Render: RenderConfig{CellSize: 8, ShowTileGrid: true},
	}
}

// LoadConfig loads the configuration from a YAML file. Unset fields keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths against the config file's directory
	base := filepath.Dir(path)
	if config.Marker != "" && !filepath.IsAbs(config.Marker) {
		config.Marker = filepath.Join(base, config.Marker)
	}
	if config.CacheFile != "" && !filepath.IsAbs(config.CacheFile) {
		config.CacheFile = filepath.Join(base, config.CacheFile)
	}

	return config, nil
}

// Validate checks field constraints and names the offending field
func (c *Config) Validate() error {
	filled := []rune(c.Glyphs.Filled)
	empty := []rune(c.Glyphs.Empty)
	if len(filled) != 1 {
		return fmt.Errorf("glyphs.filled must be a single character, got %q", c.Glyphs.Filled)
	}
	if len(empty) != 1 {
		return fmt.Errorf("glyphs.empty must be a single character, got %q", c.Glyphs.Empty)
	}
	if filled[0] == empty[0] {
		return fmt.Errorf("glyphs.filled and glyphs.empty must differ")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.MQTT.Broker != "" && c.MQTT.CorpusTopic == "" {
		return fmt.Errorf("mqtt.corpusTopic is required when mqtt.broker is set")
	}
	if c.Render.CellSize < 0 {
		return fmt.Errorf("render.cellSize must not be negative")
	}
	if _, err := PaletteFromConfig(c.Render); err != nil {
		return err
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// LoadMarker returns the configured marker, or the sea monster when none is
// set. Marker files use the same filled glyph as corpus files.
func (c *Config) LoadMarker() (Marker, error) {
	if c == nil || c.Marker == "" {
		return SeaMonster(), nil
	}
	return LoadMarkerFile(c.Marker, c.GetGlyphs().Filled)
}
