package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/learnpulse/pkg/logger"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "learnpulse-test",
		SampleRate:   1,
		StdoutWriter: &buf,
	}, logger.NewNop())
	require.NoError(t, err)

	_, span := Start(context.Background(), "analyze", attribute.String("user_id", "u-1"))
	assert.True(t, span.SpanContext().IsValid())
	End(span, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "analyze")
	assert.Contains(t, buf.String(), "boom")
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}
