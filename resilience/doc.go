// Package resilience provides the bulkhead used to cap concurrent calls to
// an upstream dependency across all in-flight requests of the process.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
//	    Name:          "transcription",
//	    MaxConcurrent: 10,
//	    MaxWait:       2 * time.Minute,
//	})
//
//	text, err := resilience.ExecuteWithResult(bh, ctx, func() (string, error) {
//	    return provider.Transcribe(ctx, req)
//	})
package resilience
