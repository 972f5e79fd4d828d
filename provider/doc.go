// Package provider holds the small generic framework every upstream
// backend is built on: a Provider contract, a registry of named factories
// and composable middleware around request/response calls.
//
//	reg := provider.NewRegistry[transcription.Provider]()
//	reg.Register("openai", openai.Factory())
//	p, err := reg.Create("openai", settings)
//
// Middleware wraps a RequestResponse provider; Chain composes them with the
// first middleware outermost:
//
//	call := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithTracing[In, Out]("transcriber"),
//	    provider.WithBulkhead[In, Out](bulkhead),
//	)(rawProvider)
package provider
