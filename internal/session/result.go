package session

import (
	"errors"

	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/ledger"
	"github.com/Klingon-tech/coinforge/internal/planner"
)

// Session errors.
var (
	ErrEmptyQueue      = errors.New("no tasks queued")
	ErrNoSigner        = errors.New("no signer configured")
	ErrExecutionFailed = errors.New("transaction failed on chain")
)

// ErrorKind classifies a failed operation for the user.
type ErrorKind string

// Error kinds.
const (
	KindInvalidAmount       ErrorKind = "InvalidAmount"
	KindInsufficientBalance ErrorKind = "InsufficientBalance"
	KindNotEnoughObjects    ErrorKind = "NotEnoughObjects"
	KindNoRecipients        ErrorKind = "NoRecipients"
	KindNoCoinSelected      ErrorKind = "NoCoinSelected"
	KindObjectConsumed      ErrorKind = "ObjectConsumed"
	KindEmptyQueue          ErrorKind = "EmptyQueue"
	KindExternalCall        ErrorKind = "ExternalCallFailed"
	KindExecutionFailed     ErrorKind = "ExecutionFailed"
	KindStale               ErrorKind = "Stale"
	KindInternal            ErrorKind = "Internal"
)

// Classify maps an error to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, planner.ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, planner.ErrNotEnoughObjects):
		return KindNotEnoughObjects
	case errors.Is(err, planner.ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, planner.ErrNoRecipients):
		return KindNoRecipients
	case errors.Is(err, planner.ErrNoCoinSelected):
		return KindNoCoinSelected
	case errors.Is(err, planner.ErrObjectConsumed):
		return KindObjectConsumed
	case errors.Is(err, ErrEmptyQueue):
		return KindEmptyQueue
	case errors.Is(err, ErrExecutionFailed):
		return KindExecutionFailed
	case errors.Is(err, ledger.ErrExternalCall), errors.Is(err, ledger.ErrMalformed):
		return KindExternalCall
	case errors.Is(err, inventory.ErrStale):
		return KindStale
	default:
		return KindInternal
	}
}

// Validation reports whether the kind is detected from local state alone.
func (k ErrorKind) Validation() bool {
	switch k {
	case KindInvalidAmount, KindInsufficientBalance, KindNotEnoughObjects,
		KindNoRecipients, KindNoCoinSelected, KindObjectConsumed, KindEmptyQueue:
		return true
	}
	return false
}

func (k ErrorKind) title() string {
	switch k {
	case KindInvalidAmount:
		return "Invalid amount"
	case KindInsufficientBalance:
		return "Insufficient balance"
	case KindNotEnoughObjects:
		return "Not enough coin objects"
	case KindNoRecipients:
		return "No recipients"
	case KindNoCoinSelected:
		return "No coin selected"
	case KindObjectConsumed:
		return "Object already used"
	case KindEmptyQueue:
		return "Nothing to send"
	case KindExternalCall:
		return "Request failed"
	case KindExecutionFailed:
		return "Transaction failed"
	case KindStale:
		return "Refresh discarded"
	default:
		return "Error"
	}
}

// Result is the outcome of a submission. Exactly one of the two shapes is
// set: Ok with Digest and Effects, or a failure with Kind and Message.
type Result struct {
	Ok      bool
	Digest  string
	Effects *ledger.Effects

	Kind    ErrorKind
	Message string
	Err     error
}

func okResult(fx *ledger.Effects) Result {
	return Result{Ok: true, Digest: fx.Digest, Effects: fx}
}

func errResult(err error) Result {
	return Result{Kind: Classify(err), Message: err.Error(), Err: err}
}

// Unwrap returns the underlying error of a failed result, or nil.
func (r Result) Unwrap() error {
	return r.Err
}
