// Package store holds the Shared Draft: the last known record of each screen,
// kept outside any single form session so that navigating away and back
// resumes where the user left off.
//
// MemoryStore lives for the process. PersistentStore adds a durable
// persist.Store behind it:
//
//	backend := persist.NewSQLStore(db, persist.WithSQLDialect(persist.DialectSQLite))
//	drafts := store.NewPersistentStore(backend, store.WithTTL(24*time.Hour))
//	syncer := form.NewSynchronizer("admin:users", seeder, drafts)
//
// Both satisfy form.DraftStore.
package store
