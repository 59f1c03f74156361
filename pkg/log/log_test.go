package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", ServiceName: "search-gateway", Output: &buf})

	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"service":"search-gateway"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestDetachKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	ctx := WithLogger(context.Background(), l)
	ctx = WithStr(ctx, FieldCaller, "user:42")

	detached := Detach(ctx)
	logger := Ctx(detached)
	logger.Info().Msg("detached")

	assert.NoError(t, detached.Err())
	assert.Contains(t, buf.String(), `"caller":"user:42"`)
}
