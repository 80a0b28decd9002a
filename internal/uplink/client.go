// Package uplink ships batches of readings to the remote collector.
package uplink

import (
	"context"
	"fmt"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/retry"
	"codeberg.org/mutker/wattlog/internal/telemetry"
	"github.com/google/uuid"
)

type Client struct {
	transport Transport
	policy    retry.Policy
	logger    logger.Logger
	newID     func() string
}

func NewClient(t Transport, p retry.Policy, log logger.Logger) (*Client, error) {
	if t == nil {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, "transport is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		transport: t,
		policy:    p,
		logger:    log,
		newID:     uuid.NewString,
	}, nil
}

// Deliver sends the batch, retrying per the policy, and returns the number of
// attempts made. A failed batch is dropped by the caller.
func (c *Client) Deliver(ctx context.Context, batch []telemetry.Reading) (int, error) {
	if len(batch) == 0 {
		c.logger.Debug().Msg("Nothing to upload")
		return 0, nil
	}

	payload, err := Encode(batch)
	if err != nil {
		return 0, err
	}

	batchID := c.newID()
	log := c.logger

	attempts, err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		sendErr := c.transport.Send(ctx, payload, batchID)
		if sendErr == nil {
			return nil
		}

		msg := fmt.Sprintf("Retrying send (Attempt %d)", attempt)
		if attempt == c.policy.MaxAttempts {
			msg = fmt.Sprintf("Send failed (Attempt %d)", attempt)
		}
		log.Warn().
			Str("batch_id", batchID).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Err(sendErr).
			Msg(msg)

		return sendErr
	})
	if err != nil {
		appErr := errors.New().Wrap(ErrDeliveryFailed, err)
		log.ErrorWithCode(appErr).
			Str("batch_id", batchID).
			Int("attempts", attempts).
			Int("readings", len(batch)).
			Msg("Upload failed, dropping batch")
		return attempts, appErr
	}

	log.Info().
		Str("batch_id", batchID).
		Int("attempt", attempts).
		Int("readings", len(batch)).
		Msg("Data sent successfully")

	return attempts, nil
}

func (c *Client) Close() error {
	return c.transport.Close()
}
