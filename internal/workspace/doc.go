// Package workspace owns the per-request working directories kept under the
// shared temp root.
//
// A Manager hands out a Run for every request. The Run's directory is a
// direct child of the temp root named by a fresh UUID, so runs never collide
// and the Reaper can age-check siblings by modification time without knowing
// about any live request.
//
//	run, err := mgr.Begin(ctx)
//	if err != nil { ... }
//	defer mgr.Release(ctx, run)
//	...
//	run.Commit() // the archive is complete; keep the directory until delivery
//
// A request that outlives the reaper's max age may lose its directory to a
// sweep. Both sides treat a directory that is already gone as success.
package workspace
