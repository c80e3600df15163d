package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pawsitter-settlement/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisClient_Disabled(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	client, err := NewRedisClient(context.Background(), logger, &config.RedisConfig{Enabled: false, Addr: "localhost:6379"})

	assert.NoError(t, err)
	assert.Nil(t, client)
}
