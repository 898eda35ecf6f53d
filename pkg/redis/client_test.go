package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/Riddimental/Backend-Noctra/pkg/config"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterScript = `return redis.call("INCRBY", KEYS[1], ARGV[1])`

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.RedisConfig{Host: "cache", Port: 6380, DB: 2})
	assert.Equal(t, "cache:6380", cfg.Addr())
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 100, cfg.PoolSize)
}

func TestLoadScriptAndEvalShaByName(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)
	ctx := context.Background()

	sha := goredis.NewScript(counterScript).Hash()
	mock.ExpectScriptLoad(counterScript).SetVal(sha)
	mock.ExpectEvalSha(sha, []string{"counter"}, 2).SetVal(int64(2))

	got, err := client.LoadScript(ctx, "counter", counterScript)
	require.NoError(t, err)
	assert.Equal(t, sha, got)

	n, err := client.EvalShaByName(ctx, "counter", []string{"counter"}, 2).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvalShaByNameUnknownScript(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := Wrap(db)

	err := client.EvalShaByName(context.Background(), "missing", nil).Err()
	assert.Error(t, err)
}

func TestLoadScriptError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := Wrap(db)

	mock.ExpectScriptLoad(counterScript).SetErr(errors.New("READONLY"))
	_, err := client.LoadScript(context.Background(), "counter", counterScript)
	assert.Error(t, err)
}
