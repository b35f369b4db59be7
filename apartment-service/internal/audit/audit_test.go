package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyalawy/nawy/pkg/log"
)

func captured(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), zerolog.New(&buf))

	Log(ctx, ActionDeleteApartment, "admin-1", "a1", "apartment deleted")

	entry := captured(t, &buf)
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionDeleteApartment, entry[FieldAction])
	assert.Equal(t, "admin-1", entry[log.FieldUserID])
	assert.Equal(t, "a1", entry[FieldTargetID])
	assert.Equal(t, "apartment deleted", entry["message"])
	assert.NotContains(t, entry, FieldDetail)
}

func TestLogWithDetail(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), zerolog.New(&buf))

	LogWithDetail(ctx, ActionReindex, "admin-1", "", "indexed=42", "search index rebuilt")

	entry := captured(t, &buf)
	assert.Equal(t, ActionReindex, entry[FieldAction])
	assert.Equal(t, "indexed=42", entry[FieldDetail])
}
