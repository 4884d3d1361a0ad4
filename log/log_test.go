package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleFiltering(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(&buf, LevelTrace, false)))

	DisableModule(BuilderMonitoring)
	Debug(BuilderMonitoring, "hidden", "offset", 3)
	assert.Empty(t, buf.String())

	EnableModules("builder_mod, layout_mod")
	defer DisableModule(BuilderMonitoring)
	defer DisableModule(LayoutMonitoring)
	Debug(BuilderMonitoring, "visible", "offset", 4)
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "module=builder_mod")
	assert.Contains(t, buf.String(), "DEBUG")

	// Warn ignores module switches.
	buf.Reset()
	Warn(PipelineMonitoring, "always")
	assert.Contains(t, buf.String(), "always")
}

func TestRecordLogs(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)
	SetDefault(NewLogger(DiscardHandler()))

	RecordLogs()
	Warn(BuilderMonitoring, "stack not empty", "depth", 2)
	Info(CacheMonitoring, "hit")

	out, err := GetRecordedLogs()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"stack not empty"`)
	assert.Contains(t, lines[0], `"depth":2`)
	assert.Contains(t, lines[1], `"module":"cache_mod"`)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
