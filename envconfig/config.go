package envconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
)

var ErrInvalidHostPort = errors.New("invalid port specified in LANELM_HOST")

const (
	defaultHost = "127.0.0.1"
	defaultPort = "11500"
)

var (
	// Set via LANELM_DEBUG in the environment: 1 for debug, 2 for trace
	Debug int
	// Set via LANELM_HOST in the environment
	Host string
	// Set via LANELM_ORIGINS in the environment
	AllowOrigins []string
	// Set via LANELM_SEPARATOR in the environment
	Separator string
	// Set via LANELM_SEQUENCE_LENGTH in the environment
	SequenceLength int
	// Set via LANELM_LANE_COUNT in the environment
	LaneCount int
	// Set via LANELM_BATCH_WIDTH in the environment, 0 means one lane row per batch
	BatchWidth int
	// Set via LANELM_VALIDATION_FRACTION in the environment
	ValidationFraction float64
	// Set via LANELM_SEED in the environment, -1 means random
	Seed int64
	// Set via LANELM_TEMPERATURE in the environment
	Temperature float64
	// Set via LANELM_TOP_K in the environment
	TopK int
	// Set via LANELM_TOP_P in the environment
	TopP float64
	// Set via LANELM_MIN_P in the environment
	MinP float64
	// Set via LANELM_EMBEDDING_DIM in the environment
	EmbeddingDim int
	// Set via LANELM_HIDDEN_SIZE in the environment
	HiddenSize int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"LANELM_DEBUG":               {"LANELM_DEBUG", Debug, "Show additional debug information (e.g. LANELM_DEBUG=1, 2 for trace)"},
		"LANELM_HOST":                {"LANELM_HOST", Host, "IP address for the lanelm server (default 127.0.0.1:11500)"},
		"LANELM_ORIGINS":             {"LANELM_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"LANELM_SEPARATOR":           {"LANELM_SEPARATOR", Separator, "Text separating corpus chunks (default \".\")"},
		"LANELM_SEQUENCE_LENGTH":     {"LANELM_SEQUENCE_LENGTH", SequenceLength, "Framed sequence length (default 500)"},
		"LANELM_LANE_COUNT":          {"LANELM_LANE_COUNT", LaneCount, "Number of stateful lanes (default 32)"},
		"LANELM_BATCH_WIDTH":         {"LANELM_BATCH_WIDTH", BatchWidth, "Examples per batch (default: lane count)"},
		"LANELM_VALIDATION_FRACTION": {"LANELM_VALIDATION_FRACTION", ValidationFraction, "Fraction of examples held out for validation (default 0.2)"},
		"LANELM_SEED":                {"LANELM_SEED", Seed, "Random seed for sampling and weights, -1 for random"},
		"LANELM_TEMPERATURE":         {"LANELM_TEMPERATURE", Temperature, "Sampling temperature, 0 for greedy (default 1)"},
		"LANELM_TOP_K":               {"LANELM_TOP_K", TopK, "Sample from the k most likely tokens, 0 for all"},
		"LANELM_TOP_P":               {"LANELM_TOP_P", TopP, "Sample from the smallest set of tokens whose probability reaches p, 0 to disable"},
		"LANELM_MIN_P":               {"LANELM_MIN_P", MinP, "Drop tokens less likely than p times the most likely one, 0 to disable"},
		"LANELM_EMBEDDING_DIM":       {"LANELM_EMBEDDING_DIM", EmbeddingDim, "Reference model embedding size (default 256)"},
		"LANELM_HIDDEN_SIZE":         {"LANELM_HIDDEN_SIZE", HiddenSize, "Reference model recurrent units (default 1024)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// Clean quotes and spaces from the value, falling back to the config file
func clean(key string) string {
	if v := strings.Trim(os.Getenv(key), "\"' "); v != "" {
		return v
	}
	return strings.Trim(GetConfigValue(key), "\"' ")
}

func init() {
	LoadConfig()
}

func intVar(key string, def, lowest int) int {
	s := clean(key)
	if s == "" {
		return def
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < lowest {
		slog.Error("invalid setting, ignoring", key, s, "minimum", lowest, "error", err)
		return def
	}
	return v
}

func floatVar(key string, def float64) float64 {
	s := clean(key)
	if s == "" {
		return def
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		slog.Error("invalid setting, ignoring", key, s, "error", err)
		return def
	}
	return v
}

// probabilityVar reads a value in [0, 1), defaulting to 0.
func probabilityVar(key string) float64 {
	v := floatVar(key, 0)
	if v < 0 || v >= 1 {
		slog.Error("invalid setting, ignoring", key, v)
		return 0
	}
	return v
}

func LoadConfig() {
	Debug = 0
	if debug := clean("LANELM_DEBUG"); debug != "" {
		if d, err := strconv.Atoi(debug); err == nil {
			Debug = d
		} else if b, err := strconv.ParseBool(debug); err == nil {
			if b {
				Debug = 1
			}
		} else {
			Debug = 1
		}
	}

	Host = clean("LANELM_HOST")

	Separator = "."
	if sep, ok := os.LookupEnv("LANELM_SEPARATOR"); ok {
		Separator = sep
	} else if sep := GetConfigValue("LANELM_SEPARATOR"); sep != "" {
		Separator = sep
	}

	SequenceLength = intVar("LANELM_SEQUENCE_LENGTH", 500, 2)
	LaneCount = intVar("LANELM_LANE_COUNT", 32, 1)
	BatchWidth = intVar("LANELM_BATCH_WIDTH", 0, 0)
	EmbeddingDim = intVar("LANELM_EMBEDDING_DIM", 256, 1)
	HiddenSize = intVar("LANELM_HIDDEN_SIZE", 1024, 1)
	TopK = intVar("LANELM_TOP_K", 0, 0)

	ValidationFraction = floatVar("LANELM_VALIDATION_FRACTION", 0.2)
	if ValidationFraction < 0 || ValidationFraction >= 1 {
		slog.Error("invalid setting, ignoring", "LANELM_VALIDATION_FRACTION", ValidationFraction)
		ValidationFraction = 0.2
	}

	TopP = probabilityVar("LANELM_TOP_P")
	MinP = probabilityVar("LANELM_MIN_P")

	Temperature = floatVar("LANELM_TEMPERATURE", 1)
	if Temperature < 0 || Temperature > 2 {
		slog.Error("invalid setting, ignoring", "LANELM_TEMPERATURE", Temperature)
		Temperature = 1
	}

	Seed = -1
	if s := clean("LANELM_SEED"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < -1 {
			slog.Error("invalid setting, ignoring", "LANELM_SEED", s, "error", err)
		} else {
			Seed = v
		}
	}

	AllowOrigins = nil
	if origins := clean("LANELM_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}

// HostPort returns the listen address from LANELM_HOST, filling in the
// default host and port.
func HostPort() (string, error) {
	host, port := defaultHost, defaultPort
	if h := Host; h != "" {
		var err error
		if host, port, err = net.SplitHostPort(h); err != nil {
			host, port = h, defaultPort
			if ip := net.ParseIP(strings.Trim(h, "[]")); ip != nil {
				host = ip.String()
			}
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n < 0 || n > 65535 {
		return "", ErrInvalidHostPort
	}

	return net.JoinHostPort(host, port), nil
}

// SeedValue returns the configured seed, or nil when sampling should use a
// random source.
func SeedValue() *uint64 {
	if Seed < 0 {
		return nil
	}
	s := uint64(Seed)
	return &s
}
