package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-console/internal/status"
	"ticket-console/models"
	"ticket-console/utils"
)

type recorded struct {
	method, path, auth, signature string
	body                          []byte
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		method:    r.Method,
		path:      r.URL.Path,
		auth:      r.Header.Get("Authorization"),
		signature: r.Header.Get("SignedHash"),
		body:      body,
	})
	f.mu.Unlock()
	f.handler(w, r)
}

func (f *fakeBackend) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeEnvelope(w http.ResponseWriter, code int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "data": data, "message": message})
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{handler: handler}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		EventURL:   srv.URL + "/events",
		PaymentURL: srv.URL + "/payments/",
		CheckInURL: srv.URL + "/offline",
		Token:      "tok",
		HMACKey:    "secret",
		Timeout:    2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return c, backend
}

func TestClient_Event(t *testing.T) {
	c, backend := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"_id":   "evt-1",
			"title": "Summer Fest",
			"tickets": []map[string]any{
				{"_id": "tt-vip", "title": "VIP", "price": 100, "seats": 50, "seatsLeft": 3},
			},
		}, "")
	})

	event, err := c.Event(context.Background(), "evt-1")
	require.NoError(t, err)

	assert.Equal(t, "Summer Fest", event.Title)
	require.Len(t, event.Tickets, 1)
	require.NotNil(t, event.Tickets[0].SeatsLeft)
	assert.Equal(t, 3, *event.Tickets[0].SeatsLeft)

	req := backend.last()
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/events/evt-1", req.path)
	assert.Equal(t, "Bearer tok", req.auth)
}

func TestClient_EventNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, nil, "Event not found")
	})

	_, err := c.Event(context.Background(), "missing")
	assert.True(t, status.IsNotFound(err))
}

func TestClient_TransactionsByEvent(t *testing.T) {
	c, backend := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, []map[string]any{
			{"_id": "tx1", "status": "success", "userId": "u1", "tickets": []any{}},
		}, "")
	})

	txs, err := c.TransactionsByEvent(context.Background(), "evt-1")
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, "u1", txs[0].Buyer.ID)
	assert.Equal(t, "/payments/admin/evt-1", backend.last().path)
}

func TestClient_CheckInSignsBody(t *testing.T) {
	c, backend := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusCreated, true, map[string]any{"_id": "ci1"}, "")
	})

	ci, err := c.CheckIn(context.Background(), models.CheckInRequest{
		TransactionID: "tx1", TicketID: "tt-vip", Quantity: 2, OrganizerID: "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ci1", ci.ID)
	assert.Equal(t, "tx1", ci.TransactionID)
	assert.Equal(t, "tt-vip", ci.TicketTypeID)
	assert.Equal(t, 2, ci.Qty())
	assert.Equal(t, "admin-1", ci.CheckedInBy)

	req := backend.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/offline/check-in", req.path)
	assert.True(t, utils.VerifyHmac256(req.body, []byte("secret"), req.signature))

	var sent models.CheckInRequest
	require.NoError(t, json.Unmarshal(req.body, &sent))
	assert.Equal(t, 2, sent.Quantity)
}

func TestClient_RejectionCarriesBackendMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, false, nil, "All tickets already checked in")
	})

	_, err := c.CheckIn(context.Background(), models.CheckInRequest{TransactionID: "tx1", TicketID: "t", Quantity: 1})

	var te *status.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, "All tickets already checked in", te.Message)
	assert.Equal(t, "checkin.create", te.Op)
}

func TestClient_SuccessFalseIsAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "undo refused")
	})

	err := c.UndoCheckIn(context.Background(), "ci1")

	var te *status.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "undo refused", te.Message)
}

func TestClient_ServerErrorWithoutBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.CheckInsForTransaction(context.Background(), "tx1")

	var te *status.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
	assert.Equal(t, "Bad Gateway", te.Message)
}

func TestClient_NetworkFailure(t *testing.T) {
	c := NewClient(Config{CheckInURL: "http://127.0.0.1:1", Timeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	err := c.UndoCheckIn(context.Background(), "ci1")
	assert.True(t, status.IsTransport(err))
}

func TestClient_OfflineBookings(t *testing.T) {
	c, backend := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeEnvelope(w, http.StatusCreated, true, map[string]any{"_id": "tx-off", "transactionType": "offline"}, "")
		default:
			writeEnvelope(w, http.StatusOK, true, []map[string]any{{"_id": "tx-off", "transactionType": "offline"}}, "")
		}
	})

	tx, err := c.CreateOfflineBooking(context.Background(), models.OfflineBookingRequest{EventID: "evt-1"})
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, models.TransactionOffline, tx.Type)
	assert.Equal(t, "/offline/admin-create", backend.last().path)

	list, err := c.OfflineBookings(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "/offline/event/evt-1", backend.last().path)
}

func TestClient_ObserverSeesEveryCall(t *testing.T) {
	var ops []string
	backend := &fakeBackend{handler: func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, []any{}, "")
	}}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := NewClient(Config{CheckInURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)),
		func(op string, err error, _ time.Duration) {
			ops = append(ops, op)
		})

	_, err := c.CheckInsForTransaction(context.Background(), "tx1")
	require.NoError(t, err)
	assert.Equal(t, []string{"checkin.list"}, ops)
}
