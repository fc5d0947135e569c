package log

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	entries []string
}

func (l *mockLogger) Log(level Level, kvs ...interface{}) {
	builder := strings.Builder{}
	builder.WriteString(level.String())
	for i := 0; i < len(kvs); i += 2 {
		builder.WriteString(fmt.Sprintf(" %v=%v", kvs[i], kvs[i+1]))
	}
	l.entries = append(l.entries, builder.String())
}

func TestWith(t *testing.T) {
	mock := &mockLogger{}
	logger, err := With(mock, "component", "loop")
	require.NoError(t, err)

	logger.Log(LevelInfo, "msg", "accepted")
	logger, err = With(logger, "conn", 7)
	require.NoError(t, err)
	logger.Log(LevelError, "msg", "closed")

	assert.Equal(t, []string{
		"INFO component=loop msg=accepted",
		"ERROR component=loop conn=7 msg=closed",
	}, mock.entries)

	_, err = With(logger, "singular")
	assert.ErrorIs(t, err, ErrKvsNotInPaired)
}

func TestWithContext(t *testing.T) {
	mock := &mockLogger{}
	type ctxCntKey struct{}
	cnt := 0
	ctx := context.WithValue(context.Background(), ctxCntKey{}, &cnt)

	logger, err := WithContext(ctx, mock)
	require.NoError(t, err)
	logger, _ = With(logger, "count", Valuer(func(ctx context.Context) interface{} {
		cnt := ctx.Value(ctxCntKey{}).(*int)
		*cnt++
		return *cnt
	}))
	logger.Log(LevelDebug, "msg", "test1")
	logger.Log(LevelInfo, "msg", "test2")

	assert.Equal(t, []string{"DEBUG count=1 msg=test1", "INFO count=2 msg=test2"}, mock.entries)

	//nolint:staticcheck
	_, err = WithContext(nil, mock)
	assert.ErrorIs(t, err, ErrContextIsNil)
}

func TestStdLogger(t *testing.T) {
	buff := &bytes.Buffer{}
	logger := NewStdLogger(buff)

	logger.Log(LevelInfo, "msg", "hello")
	logger.Log(LevelWarn, "singular")
	logger.Log(LevelDebug)

	assert.Equal(t, "INFO msg=hello\nWARN singular=KEYVALS UNPAIRED\n", buff.String())
}

func TestFullLogger(t *testing.T) {
	buff := &bytes.Buffer{}
	logger := NewFullLogger(NewStdLogger(buff))

	logger.Debugf("test %s", "debug")
	logger.Infof("test %s", "info")
	logger.Infow("peer", "127.0.0.1:9000")
	logger.Warnf("test %s", "warn")
	logger.Errorf("test %s", "error")
	logger.Errorw("err", "broken pipe")

	expected := []string{
		"DEBUG msg=test debug",
		"INFO msg=test info",
		"INFO peer=127.0.0.1:9000",
		"WARN msg=test warn",
		"ERROR msg=test error",
		"ERROR err=broken pipe",
		"",
	}
	assert.Equal(t, strings.Join(expected, "\n"), buff.String())
}

func TestFatalfExits(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = osExit }()

	buff := &bytes.Buffer{}
	NewFullLogger(NewStdLogger(buff)).Fatalf("unable to bind TCP server on port %d", 8080)

	assert.Equal(t, 1, code)
	assert.Equal(t, "FATAL msg=unable to bind TCP server on port 8080\n", buff.String())
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelDebug)

	buff := &bytes.Buffer{}
	logger := NewFullLogger(NewStdLogger(buff))

	SetLevel(LevelWarn)
	logger.Infof("hidden")
	logger.Warnf("shown")

	assert.Equal(t, "WARN msg=shown\n", buff.String())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"Warn":  LevelWarn,
		"error": LevelError,
		"fatal": LevelFatal,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
