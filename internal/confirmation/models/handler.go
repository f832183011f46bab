package models

import "context"

// Handler performs the deferred action once the recipient has proven
// possession of the mailbox. Returning a SUCCESS result consumes the
// confirmation; any other result or an error leaves it retryable until it
// expires.
//
// The request locale is available through requestcontext.Locale(ctx).
type Handler interface {
	Handle(ctx context.Context, email string, data Context) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, email string, data Context) (Result, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, email string, data Context) (Result, error) {
	return f(ctx, email, data)
}
