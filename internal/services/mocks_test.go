package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"ticket-console/internal/ledger"
	"ticket-console/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Event(ctx context.Context, eventID string) (*models.EventDetails, error) {
	args := m.Called(ctx, eventID)
	event, _ := args.Get(0).(*models.EventDetails)
	return event, args.Error(1)
}

// MockCachingCatalog also supports invalidation.
type MockCachingCatalog struct {
	MockCatalog
}

func (m *MockCachingCatalog) Invalidate(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockTransactions struct {
	mock.Mock
}

func (m *MockTransactions) TransactionsByEvent(ctx context.Context, eventID string) ([]models.Transaction, error) {
	args := m.Called(ctx, eventID)
	txs, _ := args.Get(0).([]models.Transaction)
	return txs, args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckIn(ctx context.Context, req models.CheckInRequest) (models.CheckIn, error) {
	args := m.Called(ctx, req)
	ci, _ := args.Get(0).(models.CheckIn)
	return ci, args.Error(1)
}

func (m *MockGateway) UndoCheckIn(ctx context.Context, checkInID string) error {
	args := m.Called(ctx, checkInID)
	return args.Error(0)
}

func (m *MockGateway) CheckInsForTransaction(ctx context.Context, transactionID string) ([]models.CheckIn, error) {
	args := m.Called(ctx, transactionID)
	cis, _ := args.Get(0).([]models.CheckIn)
	return cis, args.Error(1)
}

func (m *MockGateway) CreateOfflineBooking(ctx context.Context, req models.OfflineBookingRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *MockGateway) OfflineBookings(ctx context.Context, eventID string) ([]models.Transaction, error) {
	args := m.Called(ctx, eventID)
	txs, _ := args.Get(0).([]models.Transaction)
	return txs, args.Error(1)
}

type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Acquire(ctx context.Context, p ledger.Pair) (func(), error) {
	args := m.Called(ctx, p)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.released++ }, nil
}

type MockAudit struct {
	mock.Mock
}

func (m *MockAudit) Record(ctx context.Context, e AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAudit) Recent(ctx context.Context, eventID string, limit int) ([]AuditEntry, error) {
	args := m.Called(ctx, eventID, limit)
	entries, _ := args.Get(0).([]AuditEntry)
	return entries, args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, eventID string, msg Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg.EventID = eventID
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Type)
	}
	return out
}

func nullPrice(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func festEvent() *models.EventDetails {
	return &models.EventDetails{
		ID:    "evt-1",
		Title: "Summer Fest",
		Tickets: []models.TicketType{
			{ID: "tt-vip", Title: "VIP", Price: nullPrice(100), Seats: 50, SeatsLeft: models.IntPtr(4)},
			{ID: "tt-ga", Title: "General", Price: nullPrice(40), OfflinePrice: nullPrice(30), Seats: 200},
		},
	}
}

func paidTx(id, ticketID, title string, qty int, checkIns ...models.CheckIn) models.Transaction {
	return models.Transaction{
		ID:        id,
		CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:    models.StatusSuccess,
		Type:      models.TransactionOnline,
		Buyer:     models.Buyer{ID: "u-" + id, Name: "Buyer " + id, Email: id + "@example.com"},
		Lines:     []models.TicketLine{{TicketTypeID: ticketID, Title: title, Price: nullPrice(100), Quantity: models.IntPtr(qty)}},
		Receipt:   "rcpt_" + id,
		CheckIns:  checkIns,
	}
}

func confirmed(id, txID, ticketID string, qty int) models.CheckIn {
	return models.CheckIn{ID: id, TransactionID: txID, TicketTypeID: ticketID, Quantity: models.IntPtr(qty), CheckedInBy: "admin-1"}
}
