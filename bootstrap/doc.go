// Package bootstrap runs a service through its lifecycle. Components start
// in registration order, hooks run at the started, ready and stopping
// phases, and on SIGINT or SIGTERM everything stops in reverse order within
// a graceful timeout.
//
//	a, err := bootstrap.NewApp(cfg)
//	a.RegisterComponent(reaper)
//	a.RegisterComponent(httpServer)
//	a.Hook(bootstrap.PhaseReady, announce)
//	return a.Run(ctx)
//
// RunTask uses the same lifecycle for finite jobs such as a one-off sweep.
package bootstrap
