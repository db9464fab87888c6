package queue

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/storage"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

const memeType types.CoinType = "0xabc::meme::MEME"

func splitTask(pieces int) planner.SplitTask {
	return planner.SplitTask{CoinType: memeType, Pieces: pieces, AmountEach: types.NewAmount(10)}
}

func TestTransition(t *testing.T) {
	valid := [][2]State{
		{StateDraft, StateQueued},
		{StateQueued, StateSent},
		{StateQueued, StateCleared},
	}
	for _, v := range valid {
		if err := Transition(v[0], v[1]); err != nil {
			t.Errorf("%s -> %s: %v", v[0], v[1], err)
		}
	}
	invalid := [][2]State{
		{StateDraft, StateSent},
		{StateSent, StateQueued},
		{StateCleared, StateQueued},
		{StateQueued, StateDraft},
		{StateSent, StateCleared},
	}
	for _, v := range invalid {
		if err := Transition(v[0], v[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", v[0], v[1], err)
		}
	}
}

func TestQueue_AddListOrder(t *testing.T) {
	q := New(storage.NewMemory())
	for i := 1; i <= 5; i++ {
		if _, err := q.Add(splitTask(i), ""); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	entries, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("len = %d, want 5", len(entries))
	}
	for i, e := range entries {
		if e.State != StateQueued {
			t.Errorf("entry %d state = %s", i, e.State)
		}
		st, ok := e.Task.(planner.SplitTask)
		if !ok || st.Pieces != i+1 {
			t.Errorf("entry %d = %v, want pieces %d", i, e.Task, i+1)
		}
		if e.Summary == "" {
			t.Errorf("entry %d has no summary", i)
		}
	}
}

func TestQueue_AddRejectsInvalid(t *testing.T) {
	q := New(storage.NewMemory())
	if _, err := q.Add(splitTask(0), ""); !errors.Is(err, planner.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("len = %d after rejected add", n)
	}
}

func TestQueue_RemoveAndClear(t *testing.T) {
	q := New(storage.NewMemory())
	a, _ := q.Add(splitTask(1), "first")
	_, _ = q.Add(splitTask(2), "second")
	_, _ = q.Add(splitTask(3), "third")

	if err := q.Remove(a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := q.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: expected ErrNotFound, got %v", err)
	}
	if _, err := q.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get removed: expected ErrNotFound, got %v", err)
	}

	n, err := q.Clear()
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("len after clear = %d", n)
	}
}

func TestQueue_MarkSentAllOrNothing(t *testing.T) {
	q := New(storage.NewMemory())
	a, _ := q.Add(splitTask(1), "")
	b, _ := q.Add(splitTask(2), "")

	unknown := uuid.Must(uuid.NewV7())
	if err := q.MarkSent([]uuid.UUID{a.ID, unknown}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n, _ := q.Len(); n != 2 {
		t.Fatalf("len = %d, failed MarkSent must not consume anything", n)
	}

	if err := q.MarkSent([]uuid.UUID{a.ID, b.ID}); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if n, _ := q.Len(); n != 0 {
		t.Errorf("len = %d after MarkSent", n)
	}
}

func TestQueue_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	q := New(storage.NewPrefixDB(db, []byte("queue/devnet/")))
	added, err := q.Add(planner.TransferTask{
		CoinType:   types.GasCoinType,
		Recipients: []planner.Recipient{{Address: types.MustParseAddress("0xa11ce"), Amount: types.NewAmount(5)}},
	}, "send 0.000000005 SUI")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	db.Close()

	db, err = storage.NewBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	q = New(storage.NewPrefixDB(db, []byte("queue/devnet/")))
	got, err := q.Get(added.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Summary != "send 0.000000005 SUI" || got.Task.Kind() != planner.KindTransfer {
		t.Errorf("reloaded entry = %+v", got)
	}

	other := New(storage.NewPrefixDB(db, []byte("queue/mainnet/")))
	if n, _ := other.Len(); n != 0 {
		t.Errorf("other network sees %d tasks", n)
	}
}
