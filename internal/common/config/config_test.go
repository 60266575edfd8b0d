package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "siteclock", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=siteclock sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "pg.internal")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_NAME", "attendance")
	t.Setenv("PG_MAX_CONNS", "12")

	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres"}
	c.LoadFromEnv("PG")

	assert.Equal(t, "pg.internal", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, "postgres", c.User)
	assert.Equal(t, "attendance", c.Database)
	assert.Equal(t, 12, c.MaxConns)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_ADDR", "redis:6380")
	t.Setenv("CACHE_DB", "3")

	var c RedisConfig
	c.LoadFromEnv("CACHE")

	assert.Equal(t, "redis:6380", c.Addr)
	assert.Equal(t, 3, c.DB)
	assert.Empty(t, c.Password)
}

func TestMQTTConfig_LoadFromEnv_IgnoresInvalidQoS(t *testing.T) {
	t.Setenv("BUS_BROKER", "tcp://broker:1883")
	t.Setenv("BUS_QOS", "7")

	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("BUS")

	assert.Equal(t, "tcp://broker:1883", c.Broker)
	assert.Equal(t, byte(1), c.QoS)
}
