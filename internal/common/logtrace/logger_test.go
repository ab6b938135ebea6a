package logtrace

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
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"trace", zerolog.TraceLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLoggerCarriesContextID(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "debug", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := WithContextID(context.Background(), "ctx-1")
	assert.Equal(t, "ctx-1", ContextIDFromContext(ctx))
	assert.Equal(t, "", ContextIDFromContext(context.Background()))

	l := Logger(ctx)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"context_id":"ctx-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
