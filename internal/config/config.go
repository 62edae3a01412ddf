// Package config holds the dashboard settings: where the two data sources live, the field names of the
// geometry properties, the ranking bounds and the server/render options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config is the complete set of knobs. Zero values are filled by Default.
type Config struct {
	GeometrySource    string        `yaml:"geometry_source"`
	TableSource       string        `yaml:"table_source"`
	CodeProperty      string        `yaml:"code_property"`
	NameProperty      string        `yaml:"name_property"`
	CSVDelimiter      string        `yaml:"csv_delimiter"`
	Region            string        `yaml:"region"`
	PreferredVariable string        `yaml:"preferred_variable"`
	TopN              int           `yaml:"top_n"`
	TopNMin           int           `yaml:"top_n_min"`
	TopNMax           int           `yaml:"top_n_max"`
	Listen            string        `yaml:"listen"`
	OutputDir         string        `yaml:"output_dir"`
	LogLevel          string        `yaml:"log_level"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	MaxSourceBytes    int64         `yaml:"max_source_bytes"`
	S3                S3Config      `yaml:"s3"`
}

// S3Config configures s3:// sources. Credentials come from the default AWS chain.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the settings of the RS municipal GDP dashboard.
func Default() Config {
	return Config{
		GeometrySource:    "data/rs_municipios_min.geojson",
		TableSource:       "data/pib_long.csv",
		CodeProperty:      "CD_MUN7",
		NameProperty:      "NM_MUN",
		CSVDelimiter:      ",",
		Region:            "RS",
		PreferredVariable: "produto interno bruto",
		TopN:              15,
		TopNMin:           5,
		TopNMax:           50,
		Listen:            ":8080",
		OutputDir:         "out",
		LogLevel:          "info",
		FetchTimeout:      30 * time.Second,
		MaxSourceBytes:    256 << 20,
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Load reads an optional YAML file over the defaults and then applies PAINEL_* environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PAINEL_GEOMETRY_SOURCE":    &c.GeometrySource,
		"PAINEL_TABLE_SOURCE":       &c.TableSource,
		"PAINEL_CODE_PROPERTY":      &c.CodeProperty,
		"PAINEL_NAME_PROPERTY":      &c.NameProperty,
		"PAINEL_CSV_DELIMITER":      &c.CSVDelimiter,
		"PAINEL_REGION":             &c.Region,
		"PAINEL_PREFERRED_VARIABLE": &c.PreferredVariable,
		"PAINEL_LISTEN":             &c.Listen,
		"PAINEL_OUTPUT_DIR":         &c.OutputDir,
		"PAINEL_LOG_LEVEL":          &c.LogLevel,
		"PAINEL_S3_REGION":          &c.S3.Region,
		"PAINEL_S3_ENDPOINT":        &c.S3.Endpoint,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PAINEL_TOP_N":     &c.TopN,
		"PAINEL_TOP_N_MIN": &c.TopNMin,
		"PAINEL_TOP_N_MAX": &c.TopNMax,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v, ok := lookup("PAINEL_FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PAINEL_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v, ok := lookup("PAINEL_MAX_SOURCE_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("PAINEL_MAX_SOURCE_BYTES: %w", err)
		}
		c.MaxSourceBytes = n
	}
	if v, ok := lookup("PAINEL_S3_PATH_STYLE"); ok {
		c.S3.PathStyle = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return nil
}

// Delimiter returns the CSV separator rune. Validate guarantees it is a single rune.
func (c Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	return r
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GeometrySource) == "" {
		errs = append(errs, errors.New("geometry_source is required"))
	}
	if strings.TrimSpace(c.TableSource) == "" {
		errs = append(errs, errors.New("table_source is required"))
	}
	if strings.TrimSpace(c.CodeProperty) == "" {
		errs = append(errs, errors.New("code_property is required"))
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		errs = append(errs, fmt.Errorf("csv_delimiter must be a single character, got %q", c.CSVDelimiter))
	}
	if c.TopNMin <= 0 || c.TopNMax <= 0 {
		errs = append(errs, fmt.Errorf("top_n bounds must be positive (min=%d max=%d)", c.TopNMin, c.TopNMax))
	} else if c.TopNMin > c.TopNMax {
		errs = append(errs, fmt.Errorf("top_n_min %d exceeds top_n_max %d", c.TopNMin, c.TopNMax))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must not be negative, got %s", c.FetchTimeout))
	}
	if c.MaxSourceBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_source_bytes must be positive, got %d", c.MaxSourceBytes))
	}
	return errors.Join(errs...)
}
