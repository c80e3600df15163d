package webhook

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/payment"
)

// Handler applies one gateway event inside the reconciler's transaction
type Handler interface {
	Handle(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error)

func (f HandlerFunc) Handle(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	return f(ctx, tx, event)
}

// Registry maps event types to handlers. It is filled at startup and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(eventType string, h Handler) {
	r.handlers[eventType] = h
}

func (r *Registry) Lookup(eventType string) (Handler, bool) {
	h, ok := r.handlers[eventType]
	return h, ok
}

// Types lists the registered event types in order
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
