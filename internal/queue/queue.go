// Package queue persists the user's pending tasks between CLI invocations.
//
// A task moves Draft → Queued when added, and leaves the queue either as
// Sent (its transaction succeeded) or Cleared (the user removed it).
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/storage"
)

// Queue errors.
var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task state transition")
)

// State is a task's lifecycle state.
type State string

// Task states.
const (
	StateDraft   State = "draft"
	StateQueued  State = "queued"
	StateSent    State = "sent"
	StateCleared State = "cleared"
)

// Transition checks that a task may move from one state to another.
func Transition(from, to State) error {
	switch {
	case from == StateDraft && to == StateQueued,
		from == StateQueued && to == StateSent,
		from == StateQueued && to == StateCleared:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Entry is one queued task.
type Entry struct {
	ID        uuid.UUID
	State     State
	CreatedAt time.Time
	// Summary is a human-readable description captured when the task was
	// added, with amounts in display units.
	Summary string
	Task    planner.Task
}

type entryRecord struct {
	ID        uuid.UUID       `json:"id"`
	State     State           `json:"state"`
	CreatedAt time.Time       `json:"createdAt"`
	Summary   string          `json:"summary"`
	Task      json.RawMessage `json:"task"`
}

var taskPrefix = []byte("t/")

func taskKey(id uuid.UUID) []byte {
	return append(append([]byte(nil), taskPrefix...), id[:]...)
}

// Queue stores entries in a DB. IDs are UUIDv7, so key order is creation order.
type Queue struct {
	mu sync.Mutex
	db storage.DB
}

// New creates a queue backed by db.
func New(db storage.DB) *Queue {
	return &Queue{db: db}
}

// Add validates task and queues it.
func (q *Queue) Add(task planner.Task, summary string) (Entry, error) {
	if err := task.Validate(); err != nil {
		return Entry{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("new task id: %w", err)
	}
	e := Entry{
		ID:        id,
		State:     StateDraft,
		CreatedAt: time.Now().UTC(),
		Summary:   summary,
		Task:      task,
	}
	if summary == "" {
		e.Summary = task.String()
	}
	if err := Transition(e.State, StateQueued); err != nil {
		return Entry{}, err
	}
	e.State = StateQueued

	data, err := encodeEntry(e)
	if err != nil {
		return Entry{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.db.Put(taskKey(id), data); err != nil {
		return Entry{}, fmt.Errorf("store task: %w", err)
	}
	klog.Queue.Debug().Str("id", id.String()).Str("kind", string(task.Kind())).Msg("Task queued")
	return e, nil
}

// List returns queued entries in creation order.
func (q *Queue) List() ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list()
}

func (q *Queue) list() ([]Entry, error) {
	var out []Entry
	err := q.db.ForEach(taskPrefix, func(_, value []byte) error {
		e, err := decodeEntry(value)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Tasks returns the queued tasks in creation order.
func (q *Queue) Tasks() ([]planner.Task, error) {
	entries, err := q.List()
	if err != nil {
		return nil, err
	}
	tasks := make([]planner.Task, len(entries))
	for i, e := range entries {
		tasks[i] = e.Task
	}
	return tasks, nil
}

// Len returns the number of queued entries.
func (q *Queue) Len() (int, error) {
	entries, err := q.List()
	return len(entries), err
}

// Get returns one entry.
func (q *Queue) Get(id uuid.UUID) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, err := q.db.Get(taskKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(data)
}

// Remove clears one entry.
func (q *Queue) Remove(id uuid.UUID) error {
	return q.finish([]uuid.UUID{id}, StateCleared)
}

// Clear removes every entry and returns how many were cleared.
func (q *Queue) Clear() (int, error) {
	q.mu.Lock()
	entries, err := q.list()
	q.mu.Unlock()
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := q.finish(ids, StateCleared); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// MarkSent consumes the entries whose transaction succeeded. Either all of
// ids are consumed or none are.
func (q *Queue) MarkSent(ids []uuid.UUID) error {
	return q.finish(ids, StateSent)
}

// finish moves every id to a terminal state and deletes it, atomically.
func (q *Queue) finish(ids []uuid.UUID, to State) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([][]byte, 0, len(ids))
	for _, id := range ids {
		data, err := q.db.Get(taskKey(id))
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		e, err := decodeEntry(data)
		if err != nil {
			return err
		}
		if err := Transition(e.State, to); err != nil {
			return err
		}
		keys = append(keys, taskKey(id))
	}

	batch := q.db.NewBatch()
	for _, k := range keys {
		if err := batch.Delete(k); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", to, err)
	}
	if len(ids) > 0 {
		klog.Queue.Debug().Int("count", len(ids)).Str("state", string(to)).Msg("Tasks finished")
	}
	return nil
}

func encodeEntry(e Entry) ([]byte, error) {
	task, err := planner.MarshalTask(e.Task)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryRecord{
		ID:        e.ID,
		State:     e.State,
		CreatedAt: e.CreatedAt,
		Summary:   e.Summary,
		Task:      task,
	})
}

func decodeEntry(data []byte) (Entry, error) {
	var rec entryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}
	task, err := planner.UnmarshalTask(rec.Task)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", rec.ID, err)
	}
	return Entry{
		ID:        rec.ID,
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		Summary:   rec.Summary,
		Task:      task,
	}, nil
}
