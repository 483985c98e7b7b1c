package aws

import "sync"

// errorTypeRegistry holds ErrorTypeFactory values keyed by service name,
// populated by generated (or hand-written) service bindings via
// RegisterErrorType instead of threading them through ServiceConfig by
// hand. This generalizes the teacher's repository.Factory pattern — a
// registry the orchestrator consults without importing any particular
// service's package directly.
var errorTypeRegistry = struct {
	mu sync.RWMutex
	m  map[string][]ErrorTypeFactory
}{m: make(map[string][]ErrorTypeFactory)}

// RegisterErrorType adds factory to the set consulted for serviceName when
// decoding that service's non-2xx responses, in addition to whatever
// ServiceConfig.PossibleErrorTypes the caller supplies directly. Safe to
// call from an init() func; safe for concurrent use.
func RegisterErrorType(serviceName string, factory ErrorTypeFactory) {
	errorTypeRegistry.mu.Lock()
	defer errorTypeRegistry.mu.Unlock()
	errorTypeRegistry.m[serviceName] = append(errorTypeRegistry.m[serviceName], factory)
}

// RegisteredErrorTypes returns the factories registered for serviceName, in
// registration order. Used by aws/protocol.DecodeResponse; exported so
// other decoders built outside this module can consult the same registry.
func RegisteredErrorTypes(serviceName string) []ErrorTypeFactory {
	errorTypeRegistry.mu.RLock()
	defer errorTypeRegistry.mu.RUnlock()
	return append([]ErrorTypeFactory(nil), errorTypeRegistry.m[serviceName]...)
}
