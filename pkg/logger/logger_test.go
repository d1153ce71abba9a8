package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Log = zerolog.New(&buf)
	t.Cleanup(func() { Init("test") })

	assert.True(t, SetLevel(" WARN "))
	Info().Msg("hidden")
	Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.False(t, SetLevel("loud"))
	assert.False(t, SetLevel(""))
}

func TestWithUser(t *testing.T) {
	var buf bytes.Buffer
	Log = zerolog.New(&buf)
	t.Cleanup(func() { Init("test") })

	l := WithUser("u-1")
	l.Info().Msg("hi")
	assert.Contains(t, buf.String(), `"user_id":"u-1"`)
}
