package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	id, err := PublishToStream(ctx, client, "attendance:events", map[string]interface{}{
		"employee_id": int64(7),
		"type":        "in",
		"forced":      true,
		"lat":         45.5,
		"tags":        []string{"a"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := ReadStream(ctx, client, "attendance:events", "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "7", msgs[0].Values["employee_id"])
	assert.Equal(t, "in", msgs[0].Values["type"])
	assert.Equal(t, "true", msgs[0].Values["forced"])
	assert.Equal(t, "45.5", msgs[0].Values["lat"])
	assert.Equal(t, `["a"]`, msgs[0].Values["tags"])
}

func TestPublishJSONToStream(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	_, err := PublishJSONToStream(ctx, client, "s", map[string]any{"id": 1})
	require.NoError(t, err)

	msgs, err := ReadStream(ctx, client, "s", "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &payload))
	assert.Equal(t, float64(1), payload["id"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}

func TestReadStream_Empty(t *testing.T) {
	client := setupTestRedis(t)
	msgs, err := ReadStream(context.Background(), client, "missing", "0", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
