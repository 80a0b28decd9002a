package uplink_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/retry"
	"codeberg.org/mutker/wattlog/internal/uplink"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport fails the first failures sends.
type scriptedTransport struct {
	failures int
	sends    int
	payloads [][]byte
	batchIDs []string
	closed   bool
}

func (s *scriptedTransport) Send(_ context.Context, payload []byte, batchID string) error {
	s.sends++
	s.payloads = append(s.payloads, payload)
	s.batchIDs = append(s.batchIDs, batchID)
	if s.sends <= s.failures {
		return stderrors.New("connection refused")
	}
	return nil
}

func (s *scriptedTransport) Close() error {
	s.closed = true
	return nil
}

type instantSleeper struct {
	waits []time.Duration
}

func (s *instantSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func testPolicy(s retry.Sleeper) retry.Policy {
	return retry.Policy{MaxAttempts: 3, Delay: 2 * time.Second, Sleeper: s}
}

func TestDeliverFirstAttempt(t *testing.T) {
	tr := &scriptedTransport{}
	c, err := uplink.NewClient(tr, testPolicy(&instantSleeper{}), nil)
	require.NoError(t, err)

	attempts, err := c.Deliver(context.Background(), sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	require.Len(t, tr.payloads, 1)

	want, err := uplink.Encode(sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, want, tr.payloads[0])
	assert.NotEmpty(t, tr.batchIDs[0])
}

func TestDeliverSucceedsOnLastAttempt(t *testing.T) {
	var buf bytes.Buffer
	tr := &scriptedTransport{failures: 2}
	sleeper := &instantSleeper{}

	c, err := uplink.NewClient(tr, testPolicy(sleeper), logger.New(&buf, zerolog.DebugLevel))
	require.NoError(t, err)

	attempts, err := c.Deliver(context.Background(), sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, tr.sends)
	assert.Len(t, sleeper.waits, 2)

	// one id for every attempt of the same batch
	assert.Equal(t, tr.batchIDs[0], tr.batchIDs[1])
	assert.Equal(t, tr.batchIDs[0], tr.batchIDs[2])

	out := buf.String()
	assert.Contains(t, out, "Retrying send (Attempt 1)")
	assert.Contains(t, out, "Retrying send (Attempt 2)")
	assert.Contains(t, out, "Data sent successfully")
	assert.NotContains(t, out, "Send failed")
}

func TestDeliverExhausted(t *testing.T) {
	var buf bytes.Buffer
	tr := &scriptedTransport{failures: 10}
	sleeper := &instantSleeper{}

	c, err := uplink.NewClient(tr, testPolicy(sleeper), logger.New(&buf, zerolog.DebugLevel))
	require.NoError(t, err)

	attempts, err := c.Deliver(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, tr.sends)
	assert.Len(t, sleeper.waits, 2)
	assert.True(t, errors.HasCode(err, uplink.ErrDeliveryFailed))
	assert.True(t, errors.HasCode(err, retry.ErrExhausted))

	out := buf.String()
	assert.Contains(t, out, "Retrying send (Attempt 2)")
	assert.NotContains(t, out, "Retrying send (Attempt 3)")
	assert.Contains(t, out, "Send failed (Attempt 3)")
	assert.Contains(t, out, "Upload failed, dropping batch")
	assert.Contains(t, out, string(uplink.ErrDeliveryFailed))
}

func TestDeliverEmptyBatch(t *testing.T) {
	tr := &scriptedTransport{}
	c, err := uplink.NewClient(tr, testPolicy(&instantSleeper{}), nil)
	require.NoError(t, err)

	attempts, err := c.Deliver(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, attempts)
	assert.Zero(t, tr.sends)
}

func TestNewClientValidation(t *testing.T) {
	_, err := uplink.NewClient(nil, testPolicy(nil), nil)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))

	_, err = uplink.NewClient(&scriptedTransport{}, retry.Policy{}, nil)
	assert.True(t, errors.HasCode(err, retry.ErrInvalidPolicy))
}

func TestClientClose(t *testing.T) {
	tr := &scriptedTransport{}
	c, err := uplink.NewClient(tr, testPolicy(nil), nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, tr.closed)
}
