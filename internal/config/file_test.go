package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FerroO2000/sensorring/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelemetry() *internal.Telemetry {
	return internal.NewTelemetry("test", "config")
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "sensorring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func Test_Load_Defaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load("")
	assert.NoError(err)
	assert.Equal(Default(), cfg)

	assert.Equal(5, cfg.BufferCapacity)
	assert.Equal(2, cfg.ProducerCount)
	assert.Equal(Pacing{
		ProducerSleepMin: time.Second,
		ProducerSleepMax: 3 * time.Second,
		ConsumerInterval: 2 * time.Second,
	}, cfg.Pacing())

	// An empty file keeps the defaults as well
	cfg, err = Load(writeConfig(t, t.TempDir(), ""))
	assert.NoError(err)
	assert.Equal(Default(), cfg)
}

func Test_Load(t *testing.T) {
	suite := []struct {
		name     string
		content  string
		expected Pacing
	}{
		{
			name: "sequence",
			content: `
producer_sleep_range: [100ms, 300ms]
consumer_sleep_interval: 200ms
`,
			expected: Pacing{100 * time.Millisecond, 300 * time.Millisecond, 200 * time.Millisecond},
		},
		{
			name: "mapping",
			content: `
producer_sleep_range:
  min: 2s
  max: 4s
`,
			expected: Pacing{2 * time.Second, 4 * time.Second, 2 * time.Second},
		},
		{
			name: "seconds",
			content: `
producer_sleep_range: [1, 2.5]
consumer_sleep_interval: 3
`,
			expected: Pacing{time.Second, 2500 * time.Millisecond, 3 * time.Second},
		},
	}

	for _, tCase := range suite {
		t.Run(tCase.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, t.TempDir(), tCase.content))
			require.NoError(t, err)
			assert.Equal(t, tCase.expected, cfg.Pacing())
		})
	}
}

func Test_Load_Errors(t *testing.T) {
	assert := assert.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(err, os.ErrNotExist)

	suite := []string{
		"buffer_size: 3",
		"producer_sleep_range: [1s]",
		"producer_sleep_range: 1s",
		"consumer_sleep_interval: soon",
	}

	for _, content := range suite {
		_, err := Load(writeConfig(t, t.TempDir(), content))
		assert.Error(err, content)
	}
}

func Test_File_Validate(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load(writeConfig(t, t.TempDir(), `
buffer_capacity: 0
producer_count: -1
producer_sleep_range: [3s, 1s]
consumer_sleep_interval: -2s
telemetry:
  trace_ratio: 3
`))
	require.NoError(t, err)

	ac := NewAnomalyCollector()
	cfg.Validate(ac)

	assert.Equal(5, ac.Len())
	assert.Equal(DefaultBufferCapacity, cfg.BufferCapacity)
	assert.Equal(DefaultProducerCount, cfg.ProducerCount)
	assert.Equal(SleepRange{Min: 3 * time.Second, Max: 3 * time.Second}, cfg.ProducerSleepRange)
	assert.Equal(Duration(DefaultConsumerSleepInterval), cfg.ConsumerSleepInterval)
	assert.Equal(1.0, cfg.Telemetry.TraceRatio)
}

func Test_PacingStore(t *testing.T) {
	assert := assert.New(t)

	store := NewPacingStore(Pacing{
		ProducerSleepMin: time.Millisecond,
		ProducerSleepMax: 2 * time.Millisecond,
		ConsumerInterval: 5 * time.Millisecond,
	})

	producer := store.ProducerIntervals()
	consumer := store.ConsumerIntervals()

	for range 100 {
		d := producer()
		assert.GreaterOrEqual(d, time.Millisecond)
		assert.LessOrEqual(d, 2*time.Millisecond)
	}
	assert.Equal(5*time.Millisecond, consumer())

	store.Store(Pacing{ProducerSleepMin: time.Second, ProducerSleepMax: time.Second, ConsumerInterval: time.Minute})

	assert.Equal(time.Second, producer())
	assert.Equal(time.Minute, consumer())
}
