package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-console/internal/status"
)

func TestCatalogCache_Hit(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	upstream := &MockCatalog{}
	cache := NewCatalogCache(db, upstream, time.Minute, discardLogger())

	data, err := json.Marshal(festEvent())
	require.NoError(t, err)
	redisMock.ExpectGet("catalog:event:evt-1").SetVal(string(data))

	event, err := cache.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Equal(t, "Summer Fest", event.Title)
	require.NotNil(t, event.Tickets[0].SeatsLeft)
	assert.Equal(t, 4, *event.Tickets[0].SeatsLeft)
	upstream.AssertNotCalled(t, "Event", mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCatalogCache_MissFillsCache(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	upstream := &MockCatalog{}
	upstream.On("Event", mock.Anything, "evt-1").Return(festEvent(), nil)
	cache := NewCatalogCache(db, upstream, time.Minute, discardLogger())

	data, err := json.Marshal(festEvent())
	require.NoError(t, err)
	redisMock.ExpectGet("catalog:event:evt-1").RedisNil()
	redisMock.ExpectSet("catalog:event:evt-1", data, time.Minute).SetVal("OK")

	event, err := cache.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	upstream.AssertNumberOfCalls(t, "Event", 1)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCatalogCache_RedisDownFallsBack(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	upstream := &MockCatalog{}
	upstream.On("Event", mock.Anything, "evt-1").Return(festEvent(), nil)
	cache := NewCatalogCache(db, upstream, time.Minute, discardLogger())

	data, err := json.Marshal(festEvent())
	require.NoError(t, err)
	redisMock.ExpectGet("catalog:event:evt-1").SetErr(errors.New("connection refused"))
	redisMock.ExpectSet("catalog:event:evt-1", data, time.Minute).SetErr(errors.New("connection refused"))

	event, err := cache.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Equal(t, "Summer Fest", event.Title)
}

func TestCatalogCache_UpstreamErrorIsReturned(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	upstream := &MockCatalog{}
	upstream.On("Event", mock.Anything, "nope").Return(nil, status.NewNotFoundError("event", "nope"))
	cache := NewCatalogCache(db, upstream, time.Minute, discardLogger())

	redisMock.ExpectGet("catalog:event:nope").RedisNil()

	_, err := cache.Event(context.Background(), "nope")

	assert.True(t, status.IsNotFound(err))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCatalogCache_Invalidate(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	cache := NewCatalogCache(db, &MockCatalog{}, time.Minute, discardLogger())

	redisMock.ExpectDel("catalog:event:evt-1").SetVal(1)
	require.NoError(t, cache.Invalidate(context.Background(), "evt-1"))

	redisMock.ExpectDel("catalog:event:evt-1").SetErr(errors.New("boom"))
	assert.Error(t, cache.Invalidate(context.Background(), "evt-1"))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
