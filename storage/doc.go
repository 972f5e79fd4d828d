// Package storage provides the filesystem abstraction used for per-request
// working directories: streaming uploads, archive writes, directory listing
// and recursive deletion.
//
// Paths are always relative to the storage root and use forward slashes.
// The local backend roots every path at its base directory, so a path can
// never escape it. The memory backend keeps everything in process and is
// meant for tests and dry runs.
//
// # Configuration
//
//	workspace:
//	  temp_root: /tmp/transcriber_runs
//
// # Usage
//
//	import _ "github.com/kbukum/whisperbatch/storage/local"
//
//	store, err := storage.New(storage.Config{BasePath: "/tmp/transcriber_runs"}, log)
//	n, err := store.Upload(ctx, "/run-id/a.mp3", reader)
package storage
