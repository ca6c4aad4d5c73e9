// Package config loads scheduler settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File mirrors the scheduler settings in a config file.
//
// Example (YAML):
//
//	max_workers: 8
//	check_interval: 50ms
//	balancing_ratio: 20
//	level_of_detail: 2
//	log_level: info
//	metrics_addr: ":2112"
//	history_db: strokes.db
type File struct {
	MaxWorkers      int      `toml:"max_workers" yaml:"max_workers"`
	CheckInterval   Duration `toml:"check_interval" yaml:"check_interval"`
	BalancingRatio  float64  `toml:"balancing_ratio" yaml:"balancing_ratio"`
	LevelOfDetail   int      `toml:"level_of_detail" yaml:"level_of_detail"`
	UpdateQueueSize int      `toml:"update_queue_size" yaml:"update_queue_size"`

	// LogLevel is a zap level name. Empty disables logging.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// MetricsAddr is where the Prometheus handler listens. Empty disables it.
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`

	// HistoryDB is the SQLite file keeping stroke history. Empty disables it.
	HistoryDB string `toml:"history_db" yaml:"history_db"`
}

// Duration is a time.Duration written as a string such as "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Load reads path and decodes it by extension: .yaml, .yml or .toml.
//
// Returns:
//   - ErrConfigRead if the file cannot be read.
//   - ErrConfigFormat for any other extension.
//   - ErrConfigParse if decoding fails.
func Load(path string) (File, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "yml" {
		format = "yaml"
	}
	if format != "yaml" && format != "toml" {
		return File{}, errs.New(errs.ErrConfigFormat, path)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return File{}, errs.New(errs.ErrConfigRead, err.Error())
	}
	return Parse(buf, format)
}

// Parse decodes buf in the given format ("yaml" or "toml").
func Parse(buf []byte, format string) (File, error) {
	var (
		f   File
		err error
	)
	switch format {
	case "yaml":
		err = yaml.Unmarshal(buf, &f)
	case "toml":
		err = toml.Unmarshal(buf, &f)
	default:
		return File{}, errs.New(errs.ErrConfigFormat, format)
	}
	if err != nil {
		return File{}, errs.New(errs.ErrConfigParse, fmt.Sprintf("%s: %v", format, err))
	}
	return f, nil
}

// Logger builds a production zap logger at LogLevel, or a no-op logger when
// LogLevel is empty.
func (f File) Logger() (*zap.Logger, error) {
	if f.LogLevel == "" {
		return zap.NewNop(), nil
	}
	level, err := zap.ParseAtomicLevel(f.LogLevel)
	if err != nil {
		return nil, errs.New(errs.ErrConfigParse, err.Error())
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	return cfg.Build()
}

// Pool converts the file into scheduler settings, including its logger.
func (f File) Pool(hooks domain.Hooks) (domain.Pool, error) {
	logger, err := f.Logger()
	if err != nil {
		return domain.Pool{}, err
	}
	return domain.Pool{
		MaxWorkers:      f.MaxWorkers,
		CheckInterval:   time.Duration(f.CheckInterval),
		BalancingRatio:  f.BalancingRatio,
		LevelOfDetail:   f.LevelOfDetail,
		UpdateQueueSize: f.UpdateQueueSize,
		Logger:          logger,
		Hooks:           hooks,
	}, nil
}
