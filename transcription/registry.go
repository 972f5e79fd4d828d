package transcription

import "github.com/kbukum/whisperbatch/provider"

// NewRegistry creates an empty registry for transcription provider
// factories. Backends are registered by the caller so this package stays
// free of backend imports.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
