// Package upstream talks to the event, payment and check-in backends.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ticket-console/internal/status"
	"ticket-console/utils"
)

type Config struct {
	EventURL   string
	PaymentURL string
	CheckInURL string
	// Token is sent as a bearer token when set.
	Token string
	// HMACKey signs request bodies into the SignedHash header when set.
	HMACKey string
	Timeout time.Duration
}

// CallObserver is told about every upstream round trip.
type CallObserver func(op string, err error, elapsed time.Duration)

type Client struct {
	eventURL   string
	paymentURL string
	checkInURL string
	token      string
	hmacKey    string

	hc      *http.Client
	breaker *utils.CircuitBreaker
	logger  *slog.Logger
	observe CallObserver
}

func NewClient(cfg Config, logger *slog.Logger, observe CallObserver) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if observe == nil {
		observe = func(string, error, time.Duration) {}
	}
	return &Client{
		eventURL:   strings.TrimRight(cfg.EventURL, "/"),
		paymentURL: strings.TrimRight(cfg.PaymentURL, "/"),
		checkInURL: strings.TrimRight(cfg.CheckInURL, "/"),
		token:      cfg.Token,
		hmacKey:    cfg.HMACKey,
		hc:         &http.Client{Timeout: timeout},
		breaker:    utils.NewCircuitBreaker("upstream"),
		logger:     logger,
		observe:    observe,
	}
}

// envelope is the reply shape shared by every backend.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type reply struct {
	statusCode int
	env        envelope
}

// errServer marks replies that count against the circuit breaker.
var errServer = errors.New("server error")

// do sends one request and decodes the envelope's data into out. Any non-2xx
// status or success=false reply becomes a TransportError carrying the
// backend's message.
func (c *Client) do(ctx context.Context, op, method, url string, body, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(op, err, time.Since(start)) }()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return &status.TransportError{Op: op, Err: fmt.Errorf("json.Marshal: %w", err)}
		}
	}

	res, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		r, err := c.roundTrip(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}
		if r.statusCode >= http.StatusInternalServerError {
			return r, errServer
		}
		return r, nil
	})
	r, _ := res.(*reply)
	if err != nil && r == nil {
		c.logger.Error("upstream call failed", slog.String("op", op), slog.Any("error", err))
		return &status.TransportError{Op: op, Err: err}
	}

	if r.statusCode < 200 || r.statusCode > 299 || !r.env.Success {
		msg := r.env.Message
		if msg == "" {
			msg = http.StatusText(r.statusCode)
		}
		c.logger.Warn("upstream rejected request",
			slog.String("op", op), slog.Int("status", r.statusCode), slog.String("message", msg))
		return &status.TransportError{Op: op, StatusCode: r.statusCode, Message: msg}
	}

	if out == nil || len(r.env.Data) == 0 || bytes.Equal(r.env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.env.Data, out); err != nil {
		return &status.TransportError{Op: op, StatusCode: r.statusCode, Err: fmt.Errorf("json.Unmarshal: %w", err)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, url string, payload []byte) (*reply, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.hmacKey != "" {
		req.Header.Set("SignedHash", utils.Hmac256(payload, []byte(c.hmacKey)))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	r := &reply{statusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &r.env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("json.Unmarshal envelope: %w", err)
		}
	}
	return r, nil
}
