// Package persist provides durable backends for draft records.
//
// A Store saves opaque bytes under a key with an expiry. Drafts are
// encoded with EncodeDraft into a versioned JSON envelope before they reach a
// backend:
//
//	data, err := persist.EncodeDraft("admin:users", draft, time.Now())
//	err = store.Save(ctx, "admin:users", data, time.Now().Add(24*time.Hour))
//
// # Backends
//
//	store := persist.NewMemoryStore()              // single process
//	store := persist.NewSQLStore(db, persist.WithSQLDialect(persist.DialectSQLite))
//	store := persist.NewRedisStore(redisClient)    // go-redis compatible
//	store := persist.NewS3Store(s3Client, "bucket") // aws-sdk-go-v2
//
// Load returns (nil, nil) for missing or expired keys on every backend.
package persist
