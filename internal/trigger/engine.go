// Package trigger provides the trigger automation engine: event
// subscriptions bound to ordered action lists, executed off the recording
// pipeline with per-action failure isolation.
package trigger

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asikmydeen/AudioCap/internal/eventlog"
	"github.com/asikmydeen/AudioCap/internal/types"
)

// Store persists the trigger list. The engine's in-memory list stays
// authoritative for the process lifetime; persistence failures are logged
// and do not roll back mutations.
type Store interface {
	Triggers() []types.Trigger
	SetTriggers(triggers []types.Trigger) error
}

// Executor runs a single action for a fired trigger.
type Executor interface {
	Execute(action types.Action, payload types.EventPayload) error
}

// Engine matches session events against registered triggers and runs their
// actions asynchronously.
type Engine struct {
	mu         sync.RWMutex
	triggers   []types.Trigger
	subscribed map[types.EventName]struct{}

	store       Store
	executor    Executor
	eventLogger *eventlog.Logger
}

// NewEngine creates an engine preloaded with the store's persisted triggers.
func NewEngine(store Store, executor Executor, eventLogger *eventlog.Logger) *Engine {
	e := &Engine{
		subscribed:  make(map[types.EventName]struct{}),
		store:       store,
		executor:    executor,
		eventLogger: eventLogger,
	}

	for _, t := range store.Triggers() {
		if !t.Event.IsTriggerEvent() {
			slog.Warn("skipping persisted trigger with unknown event", "id", t.ID, "event", t.Event)
			continue
		}
		e.triggers = append(e.triggers, t)
		e.subscribed[t.Event] = struct{}{}
	}

	return e
}

// Add registers a trigger and persists the updated list. A missing ID is
// generated. Subscribing to an already subscribed event is a no-op.
func (e *Engine) Add(t types.Trigger) (types.Trigger, error) {
	if !t.Event.IsTriggerEvent() {
		return types.Trigger{}, fmt.Errorf("event %q cannot be subscribed to", t.Event)
	}
	if len(t.Actions) == 0 {
		return types.Trigger{}, fmt.Errorf("trigger needs at least one action")
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findLocked(t.ID) != -1 {
		return types.Trigger{}, fmt.Errorf("trigger already exists: %s", t.ID)
	}

	e.triggers = append(e.triggers, t)
	e.subscribed[t.Event] = struct{}{}
	e.persistLocked()

	slog.Info("trigger added", "id", t.ID, "event", t.Event, "actions", len(t.Actions))
	return t, nil
}

// Remove deletes a trigger by ID and persists the updated list. The event
// subscription stays in place; an event with no matching triggers simply
// runs nothing.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.findLocked(id)
	if i == -1 {
		// Nothing removed, so the persisted list already matches.
		return fmt.Errorf("trigger %s: %w", id, types.ErrTriggerNotFound)
	}

	e.triggers = append(e.triggers[:i], e.triggers[i+1:]...)
	e.persistLocked()

	slog.Info("trigger removed", "id", id)
	return nil
}

// List returns a copy of all registered triggers.
func (e *Engine) List() []types.Trigger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.triggers)
}

// OnEvent receives a session event and dispatches matching triggers. The
// subscription set gates cheaply; action execution happens on its own
// goroutine per trigger so the caller never blocks on side effects.
func (e *Engine) OnEvent(name types.EventName, payload types.EventPayload) {
	e.mu.RLock()
	if _, ok := e.subscribed[name]; !ok {
		e.mu.RUnlock()
		return
	}
	var matches []types.Trigger
	for _, t := range e.triggers {
		if t.Event == name {
			matches = append(matches, t)
		}
	}
	e.mu.RUnlock()

	for _, t := range matches {
		go e.dispatch(t, payload)
	}
}

// dispatch runs a fired trigger's actions in order. Each action is isolated:
// an error or panic in one never prevents the next from running.
func (e *Engine) dispatch(t types.Trigger, payload types.EventPayload) {
	slog.Info("trigger fired", "id", t.ID, "event", t.Event, "session_id", payload.SessionID)
	e.logTrigger(eventlog.TriggerFired, payload.SessionID, &eventlog.TriggerDetails{
		TriggerID: t.ID,
		Event:     string(t.Event),
	})

	for _, action := range t.Actions {
		e.runAction(t, action, payload)
	}
}

func (e *Engine) runAction(t types.Trigger, action types.Action, payload types.EventPayload) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("action panicked", "trigger", t.ID, "type", action.Type, "panic", r)
			e.logTrigger(eventlog.ActionFailed, payload.SessionID, &eventlog.TriggerDetails{
				TriggerID:  t.ID,
				Event:      string(t.Event),
				ActionType: string(action.Type),
				Error:      fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	if err := e.executor.Execute(action, payload); err != nil {
		slog.Error("action failed", "trigger", t.ID, "type", action.Type, "error", err)
		e.logTrigger(eventlog.ActionFailed, payload.SessionID, &eventlog.TriggerDetails{
			TriggerID:  t.ID,
			Event:      string(t.Event),
			ActionType: string(action.Type),
			Error:      err.Error(),
		})
	}
}

// findLocked returns the index of the trigger with the given ID, or -1.
// Must be called with lock held.
func (e *Engine) findLocked(id string) int {
	for i := range e.triggers {
		if e.triggers[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the current list through to the store. Must be
// called with lock held.
func (e *Engine) persistLocked() {
	if err := e.store.SetTriggers(slices.Clone(e.triggers)); err != nil {
		slog.Warn("failed to persist triggers", "error", err)
	}
}

func (e *Engine) logTrigger(eventType eventlog.EventType, sessionID string, details *eventlog.TriggerDetails) {
	if e.eventLogger == nil {
		return
	}
	if err := e.eventLogger.LogTrigger(eventType, sessionID, details); err != nil {
		slog.Warn("failed to log trigger event", "type", eventType, "error", err)
	}
}
