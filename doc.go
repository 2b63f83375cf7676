// Package redisless provides an embeddable, Redis-compatible key-value
// server that runs inside the host process.
//
// A Server speaks RESP2 over TCP, so any Redis client library can talk
// to it, while the keyspace lives in a storage.Storage owned by the
// caller. This makes it a drop-in Redis for tests and small services.
//
// Basic usage:
//
//	stor := storage.NewMemory()
//	defer stor.Close()
//
//	srv, err := redisless.New(stor, 16379)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Stop()
//
//	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
//	client.Incr(ctx, "visits")
//
// A Server moves through three states: NotStarted, Started and Stopped.
// Start and Stop are safe to call concurrently and repeatedly; Stopped is
// final. Stop closes the listening socket and every client connection
// before it returns.
//
// Supported commands cover strings and counters (GET, SET with options,
// INCR/DECR and friends, APPEND, MGET/MSET), key management (DEL, EXISTS,
// EXPIRE, TTL, KEYS, SCAN, TYPE, OBJECT ENCODING), Lua scripting (EVAL,
// EVALSHA, SCRIPT) and the connection commands clients send on connect.
package redisless
