package agent

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemetry-agent/pkg/config"
	"github.com/telemetry-agent/pkg/transmit"
)

func TestSnapshotStatic(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"snapshot", "--static", "--pretty=false", "--log.path", t.TempDir()})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t,
		`{"cpu_percent":10,"used_memory_in_bytes":100,"total_memory_in_bytes":101,"process_count":50,"total_disk_read":102,"total_disk_write":103}`+"\n",
		out.String())
}

func TestSnapshotPretty(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"snapshot", "--static", "--pretty", "--log.path", t.TempDir()})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var m map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &m))
	assert.Len(t, m, 6)
	assert.Contains(t, out.String(), "\n  \"cpu_percent\": 10,")
}

func TestNewTransmitter(t *testing.T) {
	cfg := config.NewDefaultConfig().Transmit
	assert.IsType(t, &transmit.Log{}, newTransmitter(&cfg))

	cfg.Destination = "http://collector:8080/ingest"
	assert.IsType(t, &transmit.HTTP{}, newTransmitter(&cfg))
}
