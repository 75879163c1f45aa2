package task

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/planflow/types"
)

// Object is anything that can be published on a Board.
type Object interface {
	ID() ID
}

// EventType describes a board change.
type EventType int

const (
	EventAdded EventType = iota
	EventChanged
	EventRemoved
)

func (e EventType) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the board lock is released.
type Event struct {
	Type   EventType
	Object Object
}

// Subscriber receives board events. Subscribers may call back into the board.
type Subscriber func(Event)

// Board is an in-memory registry of plan objects keyed by ID. It stands in
// for the shared blackboard: publish, change and remove notifications are
// dispatched synchronously to subscribers on the calling goroutine.
type Board struct {
	mu      sync.RWMutex
	objects map[ID]Object
	subs    map[uint64]Subscriber
	nextSub uint64

	logger *zap.Logger
}

// NewBoard creates an empty board.
func NewBoard(logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		objects: make(map[ID]Object),
		subs:    make(map[uint64]Subscriber),
		logger:  logger.With(zap.String("component", "board")),
	}
}

// Publish adds obj. Publishing an ID twice is an error.
func (b *Board) Publish(obj Object) error {
	if obj == nil || obj.ID().IsZero() {
		return types.NewError(types.ErrInvalidArgument, "object with an id is required")
	}

	b.mu.Lock()
	if _, exists := b.objects[obj.ID()]; exists {
		b.mu.Unlock()
		return types.Errorf(types.ErrAlreadyExists, "object %s already published", obj.ID())
	}
	b.objects[obj.ID()] = obj
	subs := b.subscribersLocked()
	b.mu.Unlock()

	b.logger.Debug("object published", zap.String("id", obj.ID().String()))
	dispatch(subs, Event{Type: EventAdded, Object: obj})
	return nil
}

// PublishChange announces that obj changed in place.
func (b *Board) PublishChange(obj Object) error {
	if obj == nil {
		return types.NewError(types.ErrInvalidArgument, "object is required")
	}

	b.mu.RLock()
	_, exists := b.objects[obj.ID()]
	subs := b.subscribersLocked()
	b.mu.RUnlock()

	if !exists {
		return types.Errorf(types.ErrNotFound, "object %s not published", obj.ID())
	}
	dispatch(subs, Event{Type: EventChanged, Object: obj})
	return nil
}

// Remove withdraws the object. It returns false when the object was not on
// the board, which makes repeated removals from re-entrant callbacks no-ops.
func (b *Board) Remove(id ID) bool {
	b.mu.Lock()
	obj, exists := b.objects[id]
	if !exists {
		b.mu.Unlock()
		return false
	}
	delete(b.objects, id)
	subs := b.subscribersLocked()
	b.mu.Unlock()

	b.logger.Debug("object removed", zap.String("id", id.String()))
	dispatch(subs, Event{Type: EventRemoved, Object: obj})
	return true
}

// Get returns the object with the given ID.
func (b *Board) Get(id ID) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[id]
	return obj, ok
}

// Task returns the object with the given ID if it is a Task.
func (b *Board) Task(id ID) (Task, bool) {
	obj, ok := b.Get(id)
	if !ok {
		return nil, false
	}
	t, ok := obj.(Task)
	return t, ok
}

// Tasks resolves ids in order, skipping any that are missing.
func (b *Board) Tasks(ids []ID) []Task {
	out := make([]Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := b.Task(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether id is published.
func (b *Board) Contains(id ID) bool {
	_, ok := b.Get(id)
	return ok
}

// Len returns the number of published objects.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Subscribe registers fn and returns a function that unregisters it.
func (b *Board) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Board) subscribersLocked() []Subscriber {
	if len(b.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	// 按注册顺序分发
	slices.Sort(ids)
	out := make([]Subscriber, len(ids))
	for i, id := range ids {
		out[i] = b.subs[id]
	}
	return out
}

func dispatch(subs []Subscriber, ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
