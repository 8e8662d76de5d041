package config

import (
	"strings"

	"github.com/jrsteele09/social-auth/grants"
)

const (
	storeBackendVar   = "STORE_BACKEND"
	redisAddrVar      = "REDIS_ADDR"
	redisPasswordVar  = "REDIS_PASSWORD"
	redisDBVar        = "REDIS_DB"
	boltPathVar       = "BOLT_PATH"
	storeKeyPrefixVar = "STORE_KEY_PREFIX"
)

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendBolt   = "bolt"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetBoltPath() string
	GetStoreKeyPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	return strings.ToLower(GetEnv(storeBackendVar, StoreBackendMemory))
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt(redisDBVar, 0)
}

func (Store) GetBoltPath() string {
	return GetEnv(boltPathVar, "./data/grants.db")
}

// GetStoreKeyPrefix is the prefix of every grant key, "authorization" unless set.
func (Store) GetStoreKeyPrefix() string {
	return GetEnv(storeKeyPrefixVar, grants.DefaultKeyPrefix)
}
