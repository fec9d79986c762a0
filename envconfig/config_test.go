package envconfig

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config file lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("LANELM_CONFIG", "")
	resetConfigFile()
	t.Cleanup(resetConfigFile)
	return dir
}

func resetConfigFile() {
	configOnce = sync.Once{}
	config = nil
	configPath = ""
}

func TestDefaults(t *testing.T) {
	isolate(t)
	LoadConfig()

	assert.Equal(t, 0, Debug)
	assert.Equal(t, ".", Separator)
	assert.Equal(t, 500, SequenceLength)
	assert.Equal(t, 32, LaneCount)
	assert.Equal(t, 0, BatchWidth)
	assert.InDelta(t, 0.2, ValidationFraction, 1e-9)
	assert.Equal(t, int64(-1), Seed)
	assert.Nil(t, SeedValue())
	assert.InDelta(t, 1.0, Temperature, 1e-9)
	assert.Zero(t, TopP)
	assert.Zero(t, MinP)
	assert.Equal(t, 256, EmbeddingDim)
	assert.Equal(t, 1024, HiddenSize)
	assert.Contains(t, AllowOrigins, "http://localhost")
}

func TestConfig(t *testing.T) {
	isolate(t)

	t.Setenv("LANELM_DEBUG", "false")
	LoadConfig()
	require.Equal(t, 0, Debug)
	t.Setenv("LANELM_DEBUG", "1")
	LoadConfig()
	require.Equal(t, 1, Debug)
	t.Setenv("LANELM_DEBUG", "2")
	LoadConfig()
	require.Equal(t, 2, Debug)
	t.Setenv("LANELM_DEBUG", "yes please")
	LoadConfig()
	require.Equal(t, 1, Debug)

	t.Setenv("LANELM_LANE_COUNT", "8")
	t.Setenv("LANELM_BATCH_WIDTH", "16")
	t.Setenv("LANELM_SEQUENCE_LENGTH", "\"100\"")
	t.Setenv("LANELM_SEED", "42")
	t.Setenv("LANELM_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LANELM_SEPARATOR", "")
	t.Setenv("LANELM_TOP_P", "0.9")
	t.Setenv("LANELM_MIN_P", "0.05")
	LoadConfig()
	assert.InDelta(t, 0.9, TopP, 1e-9)
	assert.InDelta(t, 0.05, MinP, 1e-9)
	assert.Equal(t, 8, LaneCount)
	assert.Equal(t, 16, BatchWidth)
	assert.Equal(t, 100, SequenceLength)
	require.NotNil(t, SeedValue())
	assert.Equal(t, uint64(42), *SeedValue())
	assert.Equal(t, "", Separator)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AllowOrigins[:2])
}

func TestInvalidValuesKeepDefaults(t *testing.T) {
	isolate(t)

	t.Setenv("LANELM_LANE_COUNT", "0")
	t.Setenv("LANELM_SEQUENCE_LENGTH", "one")
	t.Setenv("LANELM_VALIDATION_FRACTION", "1.5")
	t.Setenv("LANELM_TEMPERATURE", "-3")
	t.Setenv("LANELM_SEED", "-9")
	t.Setenv("LANELM_TOP_P", "1")
	t.Setenv("LANELM_MIN_P", "-0.1")
	LoadConfig()
	assert.Zero(t, TopP)
	assert.Zero(t, MinP)

	assert.Equal(t, 32, LaneCount)
	assert.Equal(t, 500, SequenceLength)
	assert.InDelta(t, 0.2, ValidationFraction, 1e-9)
	assert.InDelta(t, 1.0, Temperature, 1e-9)
	assert.Equal(t, int64(-1), Seed)
}

func TestConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "xdg", "lanelm", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
host = "0.0.0.0:9000"

[dataset]
sequence_length = 64
lane_count = 4
validation_fraction = 0.1

[generate]
temperature = 0.5
top_p = 0.8
min_p = 0.1

[logging]
debug = 1
`), 0o644))

	t.Setenv("LANELM_LANE_COUNT", "6")
	LoadConfig()

	assert.Equal(t, path, ConfigPath())
	assert.Equal(t, 64, SequenceLength)
	assert.Equal(t, 6, LaneCount, "environment wins over the file")
	assert.InDelta(t, 0.1, ValidationFraction, 1e-9)
	assert.InDelta(t, 0.5, Temperature, 1e-9)
	assert.InDelta(t, 0.8, TopP, 1e-9)
	assert.InDelta(t, 0.1, MinP, 1e-9)
	assert.Equal(t, 1, Debug)

	hp, err := HostPort()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", hp)
}

func TestBadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[dataset\nlane_count = "), 0o644))
	t.Setenv("LANELM_CONFIG", path)

	LoadConfig()
	assert.Equal(t, "", ConfigPath())
	assert.Equal(t, 32, LaneCount)
}

func TestHostPort(t *testing.T) {
	isolate(t)

	type testCase struct {
		value  string
		expect string
		err    error
	}

	hostTestCases := map[string]*testCase{
		"empty":             {value: "", expect: "127.0.0.1:11500"},
		"only address":      {value: "1.2.3.4", expect: "1.2.3.4:11500"},
		"only port":         {value: ":1234", expect: ":1234"},
		"address and port":  {value: "1.2.3.4:1234", expect: "1.2.3.4:1234"},
		"hostname":          {value: "example.com", expect: "example.com:11500"},
		"too large port":    {value: ":66000", err: ErrInvalidHostPort},
		"too small port":    {value: ":-1", err: ErrInvalidHostPort},
		"ipv6 localhost":    {value: "[::1]", expect: "[::1]:11500"},
		"ipv6 no brackets":  {value: "::1", expect: "[::1]:11500"},
		"ipv6 + port":       {value: "[::1]:1337", expect: "[::1]:1337"},
		"extra space":       {value: " 1.2.3.4 ", expect: "1.2.3.4:11500"},
		"extra quotes":      {value: "\"1.2.3.4\"", expect: "1.2.3.4:11500"},
		"single quotes":     {value: "'1.2.3.4'", expect: "1.2.3.4:11500"},
	}

	for k, v := range hostTestCases {
		t.Run(k, func(t *testing.T) {
			t.Setenv("LANELM_HOST", v.value)
			LoadConfig()

			hp, err := HostPort()
			if err != v.err {
				t.Fatalf("expected %v, got %v", v.err, err)
			}
			if err == nil {
				assert.Equal(t, v.expect, hp)
			}
		})
	}
}

func TestValues(t *testing.T) {
	isolate(t)
	LoadConfig()

	vals := Values()
	assert.Equal(t, "32", vals["LANELM_LANE_COUNT"])
	assert.Len(t, AsMap(), len(vals))
}
