package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskmem/pkg/log"
	"github.com/spf13/cast"
)

const (
	SectionShortTerm = "short_term"
	SectionWorking   = "working"
	SectionLongTerm  = "long_term"
	SectionGeneral   = "general"

	KeyMaxSize = "max_size"

	SnapshotFileName = "short_term.snapshot"
)

var (
	ErrUnknownSection = errors.New("unknown config section")
	ErrUnknownKey     = errors.New("unknown config key")
	ErrInvalidValue   = errors.New("invalid config value")
)

type ShortTermConfig struct {
	MaxSize         int  `env:"MEMORY_SHORT_TERM_SIZE" envDefault:"10"`
	IncludeInPrompt bool `env:"MEMORY_SHORT_TERM_INCLUDE_IN_PROMPT" envDefault:"true"`
}

// WorkingConfig and LongTermConfig are placeholders, nothing reads them yet.
type WorkingConfig struct {
	Enabled             bool    `env:"MEMORY_WORKING_ENABLED" envDefault:"false"`
	MaxFacts            int     `env:"MEMORY_WORKING_MAX_FACTS" envDefault:"100"`
	ImportanceThreshold float64 `env:"MEMORY_WORKING_IMPORTANCE_THRESHOLD" envDefault:"0.7"`
}

type LongTermConfig struct {
	Enabled             bool    `env:"MEMORY_LONG_TERM_ENABLED" envDefault:"false"`
	SimilarityThreshold float64 `env:"MEMORY_LONG_TERM_SIMILARITY_THRESHOLD" envDefault:"0.75"`
	MaxResults          int     `env:"MEMORY_LONG_TERM_MAX_RESULTS" envDefault:"5"`
}

type GeneralConfig struct {
	PersistenceEnabled bool   `env:"MEMORY_PERSISTENCE_ENABLED" envDefault:"true"`
	PersistenceDir     string `env:"MEMORY_PERSISTENCE_DIR"`
	TokenLimit         int    `env:"MEMORY_TOKEN_LIMIT" envDefault:"4000"`
}

// MemoryConfig is a plain value. Components that hold one own their copy.
type MemoryConfig struct {
	ShortTerm ShortTermConfig
	Working   WorkingConfig
	LongTerm  LongTermConfig
	General   GeneralConfig
}

func NewMemoryConfig(ctx context.Context, runtimePath string) MemoryConfig {
	c, err := ParseMemoryConfig(runtimePath, nil)
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Memory config")
	}
	return c
}

// ParseMemoryConfig reads the config from environ, or from the process
// environment when environ is nil.
func ParseMemoryConfig(runtimePath string, environ map[string]string) (MemoryConfig, error) {
	var c MemoryConfig
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return MemoryConfig{}, err
	}
	if c.General.PersistenceDir == "" {
		c.General.PersistenceDir = filepath.Join(runtimePath, "memory_data")
	}
	if c.ShortTerm.MaxSize <= 0 {
		return MemoryConfig{}, fmt.Errorf("%w: %s.%s must be positive", ErrInvalidValue, SectionShortTerm, KeyMaxSize)
	}
	return c, nil
}

// SnapshotPath is empty when persistence is off.
func (c MemoryConfig) SnapshotPath() string {
	if !c.General.PersistenceEnabled || c.General.PersistenceDir == "" {
		return ""
	}
	return filepath.Join(c.General.PersistenceDir, SnapshotFileName)
}

func (c MemoryConfig) Get(section, key string) (any, error) {
	f, err := lookupField(section, key)
	if err != nil {
		return nil, err
	}
	return f.get(&c), nil
}

// Set coerces value to the key's type and stores it.
func (c *MemoryConfig) Set(section, key string, value any) error {
	f, err := lookupField(section, key)
	if err != nil {
		return err
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrInvalidValue, section, key, err)
	}
	return nil
}

// EnvName returns the variable that overrides section.key.
func EnvName(section, key string) (string, error) {
	f, err := lookupField(section, key)
	if err != nil {
		return "", err
	}
	return f.env, nil
}

func Sections() []string {
	return sortedKeys(memoryFields)
}

func Keys(section string) ([]string, error) {
	keys, ok := memoryFields[section]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return sortedKeys(keys), nil
}

type field struct {
	env string
	get func(*MemoryConfig) any
	set func(*MemoryConfig, any) error
}

var memoryFields = map[string]map[string]field{
	SectionShortTerm: {
		KeyMaxSize: intField("MEMORY_SHORT_TERM_SIZE", true, func(c *MemoryConfig) *int { return &c.ShortTerm.MaxSize }),
		"include_in_prompt": boolField("MEMORY_SHORT_TERM_INCLUDE_IN_PROMPT",
			func(c *MemoryConfig) *bool { return &c.ShortTerm.IncludeInPrompt }),
	},
	SectionWorking: {
		"enabled":   boolField("MEMORY_WORKING_ENABLED", func(c *MemoryConfig) *bool { return &c.Working.Enabled }),
		"max_facts": intField("MEMORY_WORKING_MAX_FACTS", false, func(c *MemoryConfig) *int { return &c.Working.MaxFacts }),
		"importance_threshold": floatField("MEMORY_WORKING_IMPORTANCE_THRESHOLD",
			func(c *MemoryConfig) *float64 { return &c.Working.ImportanceThreshold }),
	},
	SectionLongTerm: {
		"enabled": boolField("MEMORY_LONG_TERM_ENABLED", func(c *MemoryConfig) *bool { return &c.LongTerm.Enabled }),
		"similarity_threshold": floatField("MEMORY_LONG_TERM_SIMILARITY_THRESHOLD",
			func(c *MemoryConfig) *float64 { return &c.LongTerm.SimilarityThreshold }),
		"max_results": intField("MEMORY_LONG_TERM_MAX_RESULTS", false, func(c *MemoryConfig) *int { return &c.LongTerm.MaxResults }),
	},
	SectionGeneral: {
		"persistence_enabled": boolField("MEMORY_PERSISTENCE_ENABLED",
			func(c *MemoryConfig) *bool { return &c.General.PersistenceEnabled }),
		"persistence_dir": stringField("MEMORY_PERSISTENCE_DIR",
			func(c *MemoryConfig) *string { return &c.General.PersistenceDir }),
		"token_limit": intField("MEMORY_TOKEN_LIMIT", false, func(c *MemoryConfig) *int { return &c.General.TokenLimit }),
	},
}

func lookupField(section, key string) (field, error) {
	keys, ok := memoryFields[section]
	if !ok {
		return field{}, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	f, ok := keys[key]
	if !ok {
		return field{}, fmt.Errorf("%w: %q in section %q", ErrUnknownKey, key, section)
	}
	return f, nil
}

func intField(envName string, positive bool, ptr func(*MemoryConfig) *int) field {
	return field{
		env: envName,
		get: func(c *MemoryConfig) any { return *ptr(c) },
		set: func(c *MemoryConfig, v any) error {
			n, err := toInt(v)
			if err != nil {
				return err
			}
			if n < 0 || (positive && n == 0) {
				return fmt.Errorf("out of range: %d", n)
			}
			*ptr(c) = n
			return nil
		},
	}
}

// toInt reads strings as base 10 and only takes integral floats.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, strconv.IntSize)
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case float32:
		return toInt(float64(x))
	case float64:
		if math.Trunc(x) != x || math.Abs(x) > 1<<53 {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int(x), nil
	}
	return cast.ToIntE(v)
}

func boolField(envName string, ptr func(*MemoryConfig) *bool) field {
	return field{
		env: envName,
		get: func(c *MemoryConfig) any { return *ptr(c) },
		set: func(c *MemoryConfig, v any) error {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}

func floatField(envName string, ptr func(*MemoryConfig) *float64) field {
	return field{
		env: envName,
		get: func(c *MemoryConfig) any { return *ptr(c) },
		set: func(c *MemoryConfig, v any) error {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return err
			}
			*ptr(c) = f
			return nil
		},
	}
}

func stringField(envName string, ptr func(*MemoryConfig) *string) field {
	return field{
		env: envName,
		get: func(c *MemoryConfig) any { return *ptr(c) },
		set: func(c *MemoryConfig, v any) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			*ptr(c) = s
			return nil
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
