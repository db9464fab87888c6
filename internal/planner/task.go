package planner

import (
	"fmt"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Kind names a task variant.
type Kind string

// Task kinds.
const (
	KindMerge          Kind = "merge"
	KindSplit          Kind = "split"
	KindTransfer       Kind = "transfer"
	KindObjectTransfer Kind = "objects"
	KindDestroyZero    Kind = "burn-dust"
)

// Task is one user intent waiting in the queue.
type Task interface {
	Kind() Kind
	// Validate checks the task in isolation, without looking at balances.
	Validate() error
	String() string
}

// MergeTask merges SourceCount coin objects into the first one, or every
// object into the first one when MergeAll is set.
type MergeTask struct {
	CoinType    types.CoinType `json:"coinType"`
	SourceCount int            `json:"sourceCount,omitempty"`
	MergeAll    bool           `json:"mergeAll,omitempty"`
}

func (MergeTask) Kind() Kind { return KindMerge }

func (t MergeTask) Validate() error {
	if t.CoinType == "" {
		return ErrNoCoinSelected
	}
	if !t.MergeAll && t.SourceCount < 1 {
		return fmt.Errorf("%w: source count must be at least 1, got %d", ErrInvalidAmount, t.SourceCount)
	}
	return nil
}

func (t MergeTask) String() string {
	if t.MergeAll {
		return fmt.Sprintf("merge all %s", t.CoinType.Name())
	}
	return fmt.Sprintf("merge %d sources of %s", t.SourceCount, t.CoinType.Name())
}

// SplitTask splits Pieces new coins of AmountEach off the owner's balance
// and keeps them in the owner's wallet.
type SplitTask struct {
	CoinType   types.CoinType `json:"coinType"`
	Pieces     int            `json:"pieces"`
	AmountEach types.Amount   `json:"amountEach"`
}

func (SplitTask) Kind() Kind { return KindSplit }

func (t SplitTask) Validate() error {
	if t.CoinType == "" {
		return ErrNoCoinSelected
	}
	if t.Pieces < 1 {
		return fmt.Errorf("%w: pieces must be at least 1, got %d", ErrInvalidAmount, t.Pieces)
	}
	if t.AmountEach.IsNil() || !t.AmountEach.IsPositive() {
		return fmt.Errorf("%w: amount each must be positive", ErrInvalidAmount)
	}
	return nil
}

// Required is Pieces × AmountEach.
func (t SplitTask) Required() types.Amount {
	return t.AmountEach.MulRaw(int64(t.Pieces))
}

func (t SplitTask) String() string {
	return fmt.Sprintf("split %s into %d × %s", t.CoinType.Name(), t.Pieces, t.AmountEach)
}

// Recipient is one destination of a transfer.
type Recipient struct {
	Address types.Address `json:"address"`
	Amount  types.Amount  `json:"amount"`
}

// TransferTask sends coins of one type to one or more recipients. With
// EqualSplit, Total is divided among the recipients and their own amounts
// are ignored.
type TransferTask struct {
	CoinType   types.CoinType `json:"coinType"`
	Recipients []Recipient    `json:"recipients"`
	EqualSplit bool           `json:"equalSplit,omitempty"`
	Total      types.Amount   `json:"total,omitempty"`
}

func (TransferTask) Kind() Kind { return KindTransfer }

func (t TransferTask) Validate() error {
	if t.CoinType == "" {
		return ErrNoCoinSelected
	}
	if len(t.Recipients) == 0 {
		return ErrNoRecipients
	}
	for i, r := range t.Recipients {
		if r.Address.IsZero() {
			return fmt.Errorf("%w: recipient %d has no address", ErrNoRecipients, i+1)
		}
	}
	if t.EqualSplit {
		if t.Total.IsNil() || !t.Total.IsPositive() {
			return fmt.Errorf("%w: total must be positive", ErrInvalidAmount)
		}
		return nil
	}
	for i, r := range t.Recipients {
		if r.Amount.IsNil() || !r.Amount.IsPositive() {
			return fmt.Errorf("%w: recipient %d amount must be positive", ErrInvalidAmount, i+1)
		}
	}
	return nil
}

// Shares returns the amount each recipient receives, in recipient order.
func (t TransferTask) Shares() []types.Amount {
	if t.EqualSplit {
		return EqualShares(t.Total, len(t.Recipients))
	}
	out := make([]types.Amount, len(t.Recipients))
	for i, r := range t.Recipients {
		out[i] = r.Amount
	}
	return out
}

// Required is the sum of all shares.
func (t TransferTask) Required() types.Amount {
	total := types.ZeroAmount()
	for _, s := range t.Shares() {
		total = total.Add(s)
	}
	return total
}

func (t TransferTask) String() string {
	mode := ""
	if t.EqualSplit {
		mode = " (equal split)"
	}
	return fmt.Sprintf("transfer %s %s to %d recipient(s)%s", t.Required(), t.CoinType.Name(), len(t.Recipients), mode)
}

// ObjectTransferTask sends whole objects, coins or otherwise, to Recipient.
type ObjectTransferTask struct {
	ObjectIDs []types.ObjectID `json:"objectIds"`
	Recipient types.Address    `json:"recipient"`
}

func (ObjectTransferTask) Kind() Kind { return KindObjectTransfer }

func (t ObjectTransferTask) Validate() error {
	if len(t.ObjectIDs) == 0 {
		return ErrNoCoinSelected
	}
	if t.Recipient.IsZero() {
		return ErrNoRecipients
	}
	seen := make(map[types.ObjectID]bool, len(t.ObjectIDs))
	for _, id := range t.ObjectIDs {
		if seen[id] {
			return fmt.Errorf("%w: %s listed twice", ErrObjectConsumed, id.Short())
		}
		seen[id] = true
	}
	return nil
}

func (t ObjectTransferTask) String() string {
	return fmt.Sprintf("transfer %d object(s) to %s", len(t.ObjectIDs), t.Recipient.Short())
}

// DestroyZeroTask destroys zero-balance coin objects to reclaim their
// storage rebate.
type DestroyZeroTask struct {
	Objects  []types.Coin `json:"objects"`
	MaxCount int          `json:"maxCount"`
}

func (DestroyZeroTask) Kind() Kind { return KindDestroyZero }

func (t DestroyZeroTask) Validate() error {
	if len(t.Objects) == 0 {
		return ErrNoCoinSelected
	}
	if t.MaxCount < 1 {
		return fmt.Errorf("%w: max count must be at least 1, got %d", ErrInvalidAmount, t.MaxCount)
	}
	for _, c := range t.Objects {
		if !c.Balance.IsNil() && !c.Balance.IsZero() {
			return fmt.Errorf("%w: %s has balance %s", ErrInvalidAmount, c.ObjectID.Short(), c.Balance)
		}
	}
	return nil
}

func (t DestroyZeroTask) String() string {
	return fmt.Sprintf("destroy %d zero-balance coin(s)", min(len(t.Objects), t.MaxCount))
}
