package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []*Event
	unsubscribe := bus.Subscribe(func(e *Event) { got = append(got, e) }, RangeChanged)

	bus.Emit(RangeChanged, "dashboard", map[string]interface{}{"chart": "weekly-inflow"})
	bus.Emit(FeedFailed, "dashboard", nil)

	require.Len(t, got, 1)
	assert.Equal(t, RangeChanged, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())

	unsubscribe()
	unsubscribe()
	bus.Emit(RangeChanged, "dashboard", nil)
	assert.Len(t, got, 1)
}

func TestBus_SubscribeAllTypes(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := map[EventType]int{}
	bus.Subscribe(func(e *Event) {
		mu.Lock()
		seen[e.Type]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, typ := range AllTypes {
		wg.Add(1)
		go func(typ EventType) {
			defer wg.Done()
			bus.Emit(typ, "test", nil)
		}(typ)
	}
	wg.Wait()

	for _, typ := range AllTypes {
		assert.Equal(t, 1, seen[typ], string(typ))
	}
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Same(t, bus, m.Bus())

	var got *Event
	bus.Subscribe(func(e *Event) { got = e }, DashboardRefreshed)

	m.EmitTyped("dashboard", &DashboardRefreshedData{
		SnapshotID: "abc",
		Datasets:   []string{"custody", "weekly"},
	})

	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Data["snapshot_id"])

	typed, ok := got.GetTypedData().(*DashboardRefreshedData)
	require.True(t, ok)
	assert.Equal(t, []string{"custody", "weekly"}, typed.Datasets)
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(func(e *Event) { got = e }, ErrorOccurred)

	m.EmitError("feed", errors.New("timeout"), map[string]interface{}{"endpoint": "/dados/semanal"})

	require.NotNil(t, got)
	data, ok := got.GetTypedData().(*ErrorEventData)
	require.True(t, ok)
	assert.Equal(t, "timeout", data.Error)
	assert.Equal(t, "/dados/semanal", data.Context["endpoint"])
}

func TestGetTypedData_Unknown(t *testing.T) {
	e := &Event{Type: "SOMETHING_ELSE", Data: map[string]interface{}{"x": 1}}
	assert.Nil(t, e.GetTypedData())

	e = &Event{Type: RangeChanged}
	assert.Nil(t, e.GetTypedData())
}
