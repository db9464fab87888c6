package planner

import (
	"reflect"
	"testing"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

func TestTaskCodec(t *testing.T) {
	nft, _ := types.ParseObjectID("0x77")
	tasks := []Task{
		MergeTask{CoinType: memeType, MergeAll: true},
		SplitTask{CoinType: memeType, Pieces: 3, AmountEach: amt(1_500_000_000)},
		TransferTask{CoinType: types.GasCoinType, Recipients: []Recipient{{Address: alice, Amount: amt(1)}, {Address: bob, Amount: amt(2)}}, Total: amt(0)},
		ObjectTransferTask{ObjectIDs: []types.ObjectID{nft}, Recipient: carol},
		DestroyZeroTask{Objects: makeCoins(memeType, 0), MaxCount: 1024},
	}
	for _, task := range tasks {
		data, err := MarshalTask(task)
		if err != nil {
			t.Fatalf("MarshalTask(%s): %v", task.Kind(), err)
		}
		got, err := UnmarshalTask(data)
		if err != nil {
			t.Fatalf("UnmarshalTask(%s): %v", task.Kind(), err)
		}
		if got.Kind() != task.Kind() || got.String() != task.String() {
			t.Errorf("%s: decoded %q, want %q", task.Kind(), got, task)
		}
		if reflect.TypeOf(got) != reflect.TypeOf(task) {
			t.Errorf("%s: decoded type %T", task.Kind(), got)
		}
	}

	if _, err := UnmarshalTask([]byte(`{"kind":"mint","task":{}}`)); err == nil {
		t.Error("unknown kind should fail")
	}
}
