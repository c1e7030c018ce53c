package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracerProviderWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(&buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "contacts.fetch_contacts")
	span.End()

	require.NoError(t, Shutdown(context.Background(), tp))

	out := strings.TrimSpace(buf.String())
	require.NotEmpty(t, out)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(out, "\n", 2)[0]), &doc))
	assert.Equal(t, "contacts.fetch_contacts", doc["Name"])
	assert.Contains(t, out, ServiceName)
}

func TestShutdownNil(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}
