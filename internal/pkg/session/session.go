package session

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/cache"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

const revokedPrefix = "session:revoked:"

var (
	store   fiber.Storage
	storeMu sync.RWMutex
)

// NewStore opens the shared fiber storage on redis database 1. When redis is unreachable an
// in-process store is used, which is only correct for a single instance.
func NewStore() fiber.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if !cache.Available() {
		log.Warn("[Session] Redis unavailable, falling back to in-memory session storage")
		SetStore(NewMemoryStore())
		return GetStore()
	}
	cacheClient := cache.GetClient()
	addr := cacheClient.Options().Addr
	if h, p, err := net.SplitHostPort(addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	if p := cacheClient.Options().Password; p != "" {
		password = p
	}

	SetStore(redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // Separate database for sessions (cache uses DB 0)
		Reset:    false,
	}))
	return GetStore()
}

// SetStore replaces the shared storage
func SetStore(s fiber.Storage) {
	storeMu.Lock()
	defer storeMu.Unlock()
	store = s
}

// GetStore returns the shared storage, creating an in-memory one if none was set up
func GetStore() fiber.Storage {
	storeMu.RLock()
	s := store
	storeMu.RUnlock()
	if s != nil {
		return s
	}
	storeMu.Lock()
	defer storeMu.Unlock()
	if store == nil {
		store = NewMemoryStore()
	}
	return store
}

// Revoke marks a token id as logged out until the token would have expired anyway.
func Revoke(tokenID string, remaining time.Duration) error {
	if tokenID == "" {
		return fmt.Errorf("empty token id")
	}
	if remaining <= 0 {
		return nil
	}
	return GetStore().Set(revokedPrefix+tokenID, []byte("1"), remaining)
}

// IsRevoked reports whether the token id was logged out
func IsRevoked(tokenID string) (bool, error) {
	val, err := GetStore().Get(revokedPrefix + tokenID)
	if err != nil {
		return false, err
	}
	return len(val) > 0, nil
}
