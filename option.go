package manzoori

import (
	"github.com/shahfaizanali/manzoori/extension"
	"github.com/shahfaizanali/manzoori/service/approval"
	"github.com/shahfaizanali/manzoori/service/event"
)

// Option customises the engine.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithChangeStore sets the approval store; it takes precedence over the
// store configured via Config.
func WithChangeStore(store approval.Store) Option {
	return func(s *Service) { s.changes = store }
}

// WithEventQueue sets the capture/decision event stream.
func WithEventQueue(queue *event.Queue) Option {
	return func(s *Service) { s.events = queue }
}

// WithTypes shares an existing type registry with the engine.
func WithTypes(types *extension.Types) Option {
	return func(s *Service) { s.types = types }
}
