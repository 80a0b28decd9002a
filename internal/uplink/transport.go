package uplink

import "context"

// BatchIDHeader carries the id of a batch so re-sent batches can be
// recognised by the receiver.
const BatchIDHeader = "X-Batch-ID"

// Transport ships one encoded batch. Implementations make a single attempt;
// retries belong to the Client.
type Transport interface {
	Send(ctx context.Context, payload []byte, batchID string) error
	Close() error
}
