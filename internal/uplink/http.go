package uplink

import (
	"context"
	"net/http"

	"codeberg.org/mutker/wattlog/internal/errors"
	"github.com/go-resty/resty/v2"
)

type HTTPTransport struct {
	client *resty.Client
	url    string
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(cfg Config) *HTTPTransport {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")

	return &HTTPTransport{client: client, url: cfg.URL}
}

func (t *HTTPTransport) Send(ctx context.Context, payload []byte, batchID string) error {
	errFactory := errors.New()

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader(BatchIDHeader, batchID).
		SetBody(payload).
		Post(t.url)
	if err != nil {
		return errFactory.Wrap(ErrSendFailed, err)
	}

	if !resp.IsSuccess() {
		return errFactory.WithData(ErrUnexpectedStatus, struct {
			URL    string
			Status int
		}{
			URL:    t.url,
			Status: resp.StatusCode(),
		})
	}

	return nil
}

func (t *HTTPTransport) Close() error {
	if transport, ok := t.client.GetClient().Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
