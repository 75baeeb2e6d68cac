// Package redis implements store.Store and cache.Cache on Redis. Raw
// documents and snapshots are Hashes keyed by container id, runs and query
// logs are JSON strings indexed by Sorted Sets scored by time, and cached
// query answers are plain strings with an expiry.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
