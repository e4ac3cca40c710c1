package trigger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asikmydeen/AudioCap/internal/types"
)

// --- Fakes ---

type fakeStore struct {
	mu       sync.Mutex
	triggers []types.Trigger
	saveErr  error
	saves    int
}

func (s *fakeStore) Triggers() []types.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Trigger(nil), s.triggers...)
}

func (s *fakeStore) SetTriggers(triggers []types.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.triggers = triggers
	return nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type executedAction struct {
	action  types.Action
	payload types.EventPayload
}

// fakeExecutor records executed actions and can fail or panic on demand.
type fakeExecutor struct {
	mu       sync.Mutex
	executed []executedAction
	failOn   types.ActionType
	panicOn  types.ActionType
}

func (e *fakeExecutor) Execute(action types.Action, payload types.EventPayload) error {
	e.mu.Lock()
	e.executed = append(e.executed, executedAction{action, payload})
	e.mu.Unlock()

	if action.Type == e.panicOn {
		panic("action blew up")
	}
	if action.Type == e.failOn {
		return errors.New("action failed")
	}
	return nil
}

func (e *fakeExecutor) executedTypes() []types.ActionType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.ActionType, len(e.executed))
	for i, a := range e.executed {
		out[i] = a.action.Type
	}
	return out
}

func (e *fakeExecutor) executedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

func notifyAction() types.Action {
	return types.Action{Type: types.ActionNotification, Params: types.ActionParams{Title: "hi"}}
}

// --- Tests ---

func TestAddGeneratesIDAndPersists(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, &fakeExecutor{}, nil)

	added, err := engine.Add(types.Trigger{
		Event:   types.EventSilenceDetected,
		Actions: []types.Action{notifyAction()},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.NotZero(t, added.CreatedAt)

	persisted := store.Triggers()
	require.Len(t, persisted, 1)
	assert.Equal(t, added.ID, persisted[0].ID)
}

func TestAddRejectsBadTriggers(t *testing.T) {
	engine := NewEngine(&fakeStore{}, &fakeExecutor{}, nil)

	_, err := engine.Add(types.Trigger{
		Event:   "recording-error",
		Actions: []types.Action{notifyAction()},
	})
	assert.Error(t, err, "recording-error is not subscribable")

	_, err = engine.Add(types.Trigger{Event: types.EventSilenceDetected})
	assert.Error(t, err, "trigger without actions")
}

func TestAddRejectsDuplicateID(t *testing.T) {
	engine := NewEngine(&fakeStore{}, &fakeExecutor{}, nil)

	trigger := types.Trigger{
		ID:      "dup",
		Event:   types.EventRecordingStarted,
		Actions: []types.Action{notifyAction()},
	}
	_, err := engine.Add(trigger)
	require.NoError(t, err)

	_, err = engine.Add(trigger)
	assert.Error(t, err)
	assert.Len(t, engine.List(), 1)
}

func TestRemove(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, &fakeExecutor{}, nil)

	added, err := engine.Add(types.Trigger{
		Event:   types.EventRecordingStopped,
		Actions: []types.Action{notifyAction()},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Remove(added.ID))
	assert.Empty(t, engine.List())
	assert.Empty(t, store.Triggers())

	assert.ErrorIs(t, engine.Remove(added.ID), types.ErrTriggerNotFound)
}

func TestNewEngineLoadsPersistedTriggers(t *testing.T) {
	store := &fakeStore{triggers: []types.Trigger{
		{ID: "keep", Event: types.EventSilenceDetected, Actions: []types.Action{notifyAction()}},
		{ID: "drop", Event: "not-an-event", Actions: []types.Action{notifyAction()}},
	}}

	engine := NewEngine(store, &fakeExecutor{}, nil)

	list := engine.List()
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].ID)
}

func TestOnEventRunsMatchingTriggers(t *testing.T) {
	executor := &fakeExecutor{}
	engine := NewEngine(&fakeStore{}, executor, nil)

	_, err := engine.Add(types.Trigger{
		Event:   types.EventSilenceDetected,
		Actions: []types.Action{notifyAction()},
	})
	require.NoError(t, err)

	// A non-matching event runs nothing.
	engine.OnEvent(types.EventRecordingStarted, types.EventPayload{SessionID: "s1"})
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, executor.executedCount())

	engine.OnEvent(types.EventSilenceDetected, types.EventPayload{SessionID: "s1"})
	require.Eventually(t, func() bool {
		return executor.executedCount() == 1
	}, time.Second, 5*time.Millisecond)

	executor.mu.Lock()
	payload := executor.executed[0].payload
	executor.mu.Unlock()
	assert.Equal(t, "s1", payload.SessionID)
}

func TestActionsRunInOrderDespiteFailures(t *testing.T) {
	executor := &fakeExecutor{failOn: types.ActionAPICall}
	engine := NewEngine(&fakeStore{}, executor, nil)

	_, err := engine.Add(types.Trigger{
		Event: types.EventRecordingStopped,
		Actions: []types.Action{
			{Type: types.ActionSaveFile, Params: types.ActionParams{Destination: "/tmp"}},
			{Type: types.ActionAPICall, Params: types.ActionParams{URL: "http://example.test"}},
			{Type: types.ActionNotification},
		},
	})
	require.NoError(t, err)

	engine.OnEvent(types.EventRecordingStopped, types.EventPayload{SessionID: "s1"})

	require.Eventually(t, func() bool {
		return executor.executedCount() == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []types.ActionType{types.ActionSaveFile, types.ActionAPICall, types.ActionNotification}, executor.executedTypes())
}

func TestActionPanicDoesNotStopRemainingActions(t *testing.T) {
	executor := &fakeExecutor{panicOn: types.ActionAPICall}
	engine := NewEngine(&fakeStore{}, executor, nil)

	_, err := engine.Add(types.Trigger{
		Event: types.EventSilenceDetected,
		Actions: []types.Action{
			{Type: types.ActionAPICall, Params: types.ActionParams{URL: "http://example.test"}},
			{Type: types.ActionNotification},
		},
	})
	require.NoError(t, err)

	engine.OnEvent(types.EventSilenceDetected, types.EventPayload{SessionID: "s1"})

	require.Eventually(t, func() bool {
		return executor.executedCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestRemovedTriggerNoLongerFires(t *testing.T) {
	executor := &fakeExecutor{}
	engine := NewEngine(&fakeStore{}, executor, nil)

	added, err := engine.Add(types.Trigger{
		Event:   types.EventSilenceDetected,
		Actions: []types.Action{notifyAction()},
	})
	require.NoError(t, err)
	require.NoError(t, engine.Remove(added.ID))

	engine.OnEvent(types.EventSilenceDetected, types.EventPayload{SessionID: "s1"})
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, executor.executedCount())
}

func TestPersistFailureKeepsInMemoryList(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	engine := NewEngine(store, &fakeExecutor{}, nil)

	added, err := engine.Add(types.Trigger{
		Event:   types.EventRecordingStarted,
		Actions: []types.Action{notifyAction()},
	})
	require.NoError(t, err, "persistence failure must not fail the add")
	assert.Positive(t, store.saveCount())

	list := engine.List()
	require.Len(t, list, 1)
	assert.Equal(t, added.ID, list[0].ID)
}
