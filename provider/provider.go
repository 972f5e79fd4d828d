package provider

import "context"

// Provider is implemented by every backend.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// RequestResponse is a Provider answering one input with one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Factory builds a provider from the settings map of its config section.
type Factory[T Provider] func(settings map[string]any) (T, error)

// Func turns fn into an always-available RequestResponse named name.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return funcProvider[I, O]{name: name, fn: fn}
}

type funcProvider[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f funcProvider[I, O]) Name() string                                 { return f.name }
func (funcProvider[I, O]) IsAvailable(context.Context) bool               { return true }
func (f funcProvider[I, O]) Execute(ctx context.Context, in I) (O, error) { return f.fn(ctx, in) }
