package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the TOML configuration structure
type Config struct {
	Server struct {
		Host    string   `toml:"host"`
		Origins []string `toml:"origins"`
	} `toml:"server"`

	Dataset struct {
		Separator          *string  `toml:"separator"`
		SequenceLength     *int     `toml:"sequence_length"`
		LaneCount          *int     `toml:"lane_count"`
		BatchWidth         *int     `toml:"batch_width"`
		ValidationFraction *float64 `toml:"validation_fraction"`
	} `toml:"dataset"`

	Generate struct {
		Seed        *int64   `toml:"seed"`
		Temperature *float64 `toml:"temperature"`
		TopK        *int     `toml:"top_k"`
		TopP        *float64 `toml:"top_p"`
		MinP        *float64 `toml:"min_p"`
	} `toml:"generate"`

	Model struct {
		EmbeddingDim *int `toml:"embedding_dim"`
		HiddenSize   *int `toml:"hidden_size"`
	} `toml:"model"`

	Logging struct {
		Debug *int `toml:"debug"`
	} `toml:"logging"`
}

var (
	configOnce sync.Once
	config     *Config
	configPath string
)

// GetConfigPaths returns the list of possible config file paths
func GetConfigPaths() []string {
	var paths []string
	if p := os.Getenv("LANELM_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		paths = append(paths, filepath.Join(xdgConfig, "lanelm", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "lanelm", "config.toml"),
			filepath.Join(home, ".lanelm", "config.toml"),
		)
	}
	return paths
}

// loadConfig loads the first available configuration file
func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

func format[T any](v *T) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}

// GetConfigValue returns the value for a given environment variable key from the config file
func GetConfigValue(key string) string {
	configOnce.Do(func() {
		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	})

	if config == nil {
		return ""
	}

	switch key {
	case "LANELM_HOST":
		return config.Server.Host
	case "LANELM_ORIGINS":
		return strings.Join(config.Server.Origins, ",")
	case "LANELM_SEPARATOR":
		return format(config.Dataset.Separator)
	case "LANELM_SEQUENCE_LENGTH":
		return format(config.Dataset.SequenceLength)
	case "LANELM_LANE_COUNT":
		return format(config.Dataset.LaneCount)
	case "LANELM_BATCH_WIDTH":
		return format(config.Dataset.BatchWidth)
	case "LANELM_VALIDATION_FRACTION":
		return format(config.Dataset.ValidationFraction)
	case "LANELM_SEED":
		return format(config.Generate.Seed)
	case "LANELM_TEMPERATURE":
		return format(config.Generate.Temperature)
	case "LANELM_TOP_K":
		return format(config.Generate.TopK)
	case "LANELM_TOP_P":
		return format(config.Generate.TopP)
	case "LANELM_MIN_P":
		return format(config.Generate.MinP)
	case "LANELM_EMBEDDING_DIM":
		return format(config.Model.EmbeddingDim)
	case "LANELM_HIDDEN_SIZE":
		return format(config.Model.HiddenSize)
	case "LANELM_DEBUG":
		return format(config.Logging.Debug)
	default:
		return ""
	}
}

// ConfigPath returns the path of the loaded config file, if any
func ConfigPath() string {
	GetConfigValue("")
	return configPath
}
