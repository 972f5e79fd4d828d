package provider

import (
	"context"
	"time"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/observability"
	"github.com/kbukum/whisperbatch/resilience"
)

// Middleware decorates a RequestResponse provider.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain combines middlewares. The first one listed is outermost, so
// Chain(a, b)(p) behaves like a(b(p)).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			p = middlewares[i](p)
		}
		return p
	}
}

// wrapped keeps the identity of the decorated provider and replaces Execute.
type wrapped[I, O any] struct {
	RequestResponse[I, O]
	execute func(ctx context.Context, input I) (O, error)
}

func (w *wrapped[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return w.execute(ctx, input)
}

// WithLogging logs every call with its duration: failures at warn, the
// rest at debug. It never changes the result.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(next RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{RequestResponse: next, execute: func(ctx context.Context, input I) (O, error) {
			start := time.Now()
			out, err := next.Execute(ctx, input)

			fields := logger.DurationFields("provider.execute", time.Since(start))
			fields["provider"] = next.Name()
			if err != nil {
				fields[logger.FieldError] = err.Error()
				log.WithContext(ctx).Warn("provider call failed", fields)
			} else {
				log.WithContext(ctx).Debug("provider call ok", fields)
			}
			return out, err
		}}
	}
}

// WithTracing runs every call in a provider span tagged with serviceName
// and the provider name.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return func(next RequestResponse[I, O]) RequestResponse[I, O] {
		return &wrapped[I, O]{RequestResponse: next, execute: func(ctx context.Context, input I) (O, error) {
			ctx, span := observability.StartSpan(ctx, observability.SpanProviderCall)
			defer span.End()
			observability.SetSpanAttribute(ctx, "service.name", serviceName)
			observability.SetSpanAttribute(ctx, observability.AttrProvider, next.Name())

			out, err := next.Execute(ctx, input)
			if err != nil {
				observability.SetSpanError(ctx, err)
			}
			return out, err
		}}
	}
}

// WithBulkhead runs every call inside b. Sharing b between providers caps
// their calls together. A nil bulkhead leaves the provider unwrapped.
func WithBulkhead[I, O any](b *resilience.Bulkhead) Middleware[I, O] {
	return func(next RequestResponse[I, O]) RequestResponse[I, O] {
		if b == nil {
			return next
		}
		return &wrapped[I, O]{RequestResponse: next, execute: func(ctx context.Context, input I) (O, error) {
			return resilience.ExecuteWithResult(b, ctx, func() (O, error) {
				return next.Execute(ctx, input)
			})
		}}
	}
}
