package reqctx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_AddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithUserID(WithRID(context.Background(), "rid-1"), "cust-1")

	Logger(ctx, base).Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rid-1", line["rid"])
	assert.Equal(t, "cust-1", line["uid"])
	assert.Equal(t, "hello", line["message"])
}

func TestLogger_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	Logger(context.Background(), zerolog.New(&buf)).Warn().Msg("plain")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "rid")
	assert.NotContains(t, line, "uid")
	assert.Equal(t, "warn", line["level"])
}
