package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want LogLevel
	}{
		{"quiet", LogQuiet},
		{"off", LogQuiet},
		{"", LogOps},
		{"OPS", LogOps},
		{" diag ", LogDiag},
		{"trace", LogTrace},
	} {
		got, err := ParseLogLevel(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLogLevel("verbose")
	assert.ErrorContains(t, err, "unknown log level")
	assert.Equal(t, "diag", LogDiag.String())
	assert.Equal(t, "LogLevel(9)", LogLevel(9).String())
}

// logLines splits logger output into prefix and message around the
// timestamp the logger writes between them.
func logLines(t *testing.T, out string) map[string]string {
	t.Helper()
	got := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		// prefix, date, time, message
		prefix, rest, ok := strings.Cut(line, "] ")
		require.True(t, ok, line)
		prefix += "] "
		if after, found := strings.CutPrefix(rest, "trace: "); found {
			prefix, rest = prefix+"trace: ", after
		}
		fields := strings.SplitN(rest, " ", 3)
		require.Len(t, fields, 3, line)
		got[fields[2]] = prefix
	}
	return got
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	var buf bytes.Buffer
	emit := func() {
		opsf("ops line")
		diagf("diag line")
		tracef("trace line")
	}

	SetLogLevel(&buf, LogDiag)
	emit()
	assert.Equal(t, map[string]string{
		"ops line":  "[pipeline] ",
		"diag line": "[pipeline] ",
	}, logLines(t, buf.String()))

	buf.Reset()
	SetLogLevel(&buf, LogTrace)
	emit()
	lines := logLines(t, buf.String())
	assert.Len(t, lines, 3)
	assert.Equal(t, "[pipeline] trace: ", lines["trace line"])

	buf.Reset()
	SetLogLevel(&buf, LogQuiet)
	emit()
	assert.Empty(t, buf.String())
}
