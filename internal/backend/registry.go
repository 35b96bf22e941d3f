package backend

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Factory defines how to create a backend of a specific type.
type Factory struct {
	// Type is the backend identifier used in configuration
	// (e.g., "openai", "anthropic", "echo")
	Type string

	// Description provides a human-readable description of the backend
	Description string

	// RequiresAPIKey marks backends that cannot run without a credential.
	RequiresAPIKey bool

	// Create instantiates a new backend from settings.
	Create func(s Settings) (Completer, error)
}

var (
	factoryMu   sync.RWMutex
	factoryMap  = make(map[string]Factory)
	factoryList []Factory
)

// RegisterFactory registers a backend factory for a specific type.
// Panics if a factory with the same type is already registered.
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if f.Type == "" {
		panic("backend factory type cannot be empty")
	}
	if f.Create == nil {
		panic(fmt.Sprintf("backend factory %q must have a Create function", f.Type))
	}
	if _, exists := factoryMap[f.Type]; exists {
		panic(fmt.Sprintf("backend factory %q already registered", f.Type))
	}

	factoryMap[f.Type] = f
	factoryList = append(factoryList, f)
}

// GetFactory returns the factory for a backend type, if registered.
func GetFactory(backendType string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryMap[backendType]
	return f, ok
}

// IsRegistered returns true if a backend type is registered.
func IsRegistered(backendType string) bool {
	_, ok := GetFactory(backendType)
	return ok
}

// ListTypes returns all registered backend type names, sorted.
func ListTypes() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	types := make([]string, len(factoryList))
	for i, f := range factoryList {
		types[i] = f.Type
	}
	sort.Strings(types)
	return types
}

// New creates a backend using the registered factory for s.Type. When no
// HTTP client is supplied, an OpenTelemetry-instrumented one is installed.
func New(s Settings) (Completer, error) {
	f, ok := GetFactory(s.Type)
	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s (registered types: %v)", s.Type, ListTypes())
	}
	if f.RequiresAPIKey && s.APIKey == "" {
		return nil, fmt.Errorf("backend %s requires an api key", s.Type)
	}
	if s.Model == "" {
		return nil, fmt.Errorf("backend %s requires a model", s.Type)
	}

	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   s.Timeout,
		}
	}

	return f.Create(s)
}

// ClearFactories removes all registered factories (for testing only).
func ClearFactories() {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	factoryMap = make(map[string]Factory)
	factoryList = nil
}
