// Package component defines the lifecycle contract of the long-lived parts
// of the service, such as the telemetry exporters, the workspace reaper and
// the HTTP server, and a registry that starts them in order and stops them
// in reverse.
//
//	reg := component.NewRegistry(log, 10*time.Second)
//	_ = reg.Register(reaper)
//	_ = reg.Register(httpServer)
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(context.Background())
package component
