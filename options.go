package beacon

import (
	"log/slog"

	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
	"github.com/telhawk-systems/telhawk-beacon/internal/state"
)

// Option customizes a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger replaces the logger built from configuration.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = &logging.Logger{Logger: log} }
}

// WithStore injects a state store, overriding the redis/memory choice
// from configuration. The caller keeps ownership and must close it.
func WithStore(store state.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithSender injects a transport, mainly for tests.
func WithSender(sender Sender) Option {
	return func(p *Pipeline) { p.sender = sender }
}

// WithContextProvider sets the collaborator that snapshots the host
// environment for each recorded event.
func WithContextProvider(provider ContextProvider) Option {
	return func(p *Pipeline) { p.provider = provider }
}

// WithDNTSignal sets the platform do-not-track signal consulted at boot.
func WithDNTSignal(signal DNTSignal) Option {
	return func(p *Pipeline) { p.dnt = signal }
}
