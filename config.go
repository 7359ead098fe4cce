package featcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/featcache/internal/dispatch"
	"github.com/gogpu/featcache/label"
)

// Config holds the tunables of a Store that can be loaded from TOML:
//
//	redispatch_interval = "500ms"
//	snapshot_memo = true
//
//	[label]
//	max_line_graphemes = 32
//	max_lines = 2
type Config struct {
	RedispatchInterval Duration      `toml:"redispatch_interval"`
	SnapshotMemo       bool          `toml:"snapshot_memo"`
	LabelCacheSize     int           `toml:"label_cache_size"`
	Label              label.Options `toml:"label"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

// UnmarshalText parses strings such as "250ms" or "2s".
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration with time.Duration.String.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultConfig returns the configuration NewStore uses without options.
func DefaultConfig() Config {
	return Config{
		RedispatchInterval: Duration(dispatch.DefaultRetryInterval),
		SnapshotMemo:       true,
		LabelCacheSize:     label.DefaultCacheSize,
		Label:              label.DefaultOptions(),
	}
}

// ParseConfig decodes TOML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) && len(serr.Errors) > 0 {
			first := &serr.Errors[0]
			row, col := first.Position()
			return Config{}, fmt.Errorf("featcache: config line %d column %d: unknown key %q", row, col, strings.Join(first.Key(), "."))
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("featcache: config line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("featcache: config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("featcache: read config: %w", err)
	}
	return ParseConfig(data)
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) validate() error {
	switch {
	case c.RedispatchInterval < 0:
		return fmt.Errorf("featcache: config: redispatch_interval %v is negative", time.Duration(c.RedispatchInterval))
	case c.LabelCacheSize < 0:
		return fmt.Errorf("featcache: config: label_cache_size %d is negative", c.LabelCacheSize)
	case c.Label.MaxLines < 0 || c.Label.MaxLineGraphemes < 0:
		return errors.New("featcache: config: label limits must not be negative")
	}
	return nil
}

// Options converts the configuration into store options.
func (c Config) Options() []Option {
	return []Option{
		WithRedispatchInterval(time.Duration(c.RedispatchInterval)),
		WithSnapshotMemo(c.SnapshotMemo),
		WithLabelOptions(c.Label, c.LabelCacheSize),
	}
}
