package core

import "context"

// Response is the transport-level result of one round trip.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs the network round trip for a transaction. Connection
// management, TLS and socket-level timeouts belong to implementations, not
// to the execution core. A non-nil error means the request never produced a
// usable response; check failures are judged by the caller.
type Transport interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error)
}
