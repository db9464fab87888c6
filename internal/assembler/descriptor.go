package assembler

import (
	"encoding/json"
	"strconv"

	"github.com/Klingon-tech/coinforge/pkg/types"
)

// Command names.
const (
	CmdMergeCoins      = "MergeCoins"
	CmdSplitCoins      = "SplitCoins"
	CmdTransferObjects = "TransferObjects"
	CmdMoveCall        = "MoveCall"
)

// DestroyZeroFunction is the Move function that deletes an empty coin.
const DestroyZeroFunction = "0x2::coin::destroy_zero"

// Input is a transaction input: an object by ID or a pure value.
type Input struct {
	Kind     string          `json:"kind"` // "object" or "pure"
	ObjectID *types.ObjectID `json:"objectId,omitempty"`
	Type     string          `json:"type,omitempty"` // pure: "u64" or "address"
	Value    string          `json:"value,omitempty"`
}

// Command is one programmable-transaction command.
type Command struct {
	Kind string `json:"kind"`

	Target  *Handle  `json:"target,omitempty"`  // MergeCoins
	Sources []Handle `json:"sources,omitempty"` // MergeCoins

	Coin    *Handle  `json:"coin,omitempty"`    // SplitCoins
	Amounts []Handle `json:"amounts,omitempty"` // SplitCoins

	Objects []Handle `json:"objects,omitempty"` // TransferObjects
	Address *Handle  `json:"address,omitempty"` // TransferObjects

	Function      string   `json:"function,omitempty"`      // MoveCall
	TypeArguments []string `json:"typeArguments,omitempty"` // MoveCall
	Arguments     []Handle `json:"arguments,omitempty"`     // MoveCall
}

// Descriptor is the default Builder: a JSON description of a programmable
// transaction that an external signer turns into bytes.
type Descriptor struct {
	Sender    types.Address `json:"sender"`
	GasBudget uint64        `json:"gasBudget"`
	Inputs    []Input       `json:"inputs"`
	Commands  []Command     `json:"commands"`

	objects   map[types.ObjectID]int
	addresses map[types.Address]int
}

var _ Builder = (*Descriptor)(nil)

// NewDescriptor returns an empty descriptor.
func NewDescriptor() *Descriptor {
	return &Descriptor{
		Inputs:    []Input{},
		Commands:  []Command{},
		objects:   make(map[types.ObjectID]int),
		addresses: make(map[types.Address]int),
	}
}

func (d *Descriptor) SetSender(a types.Address) { d.Sender = a }

func (d *Descriptor) SetGasBudget(b uint64) { d.GasBudget = b }

func (d *Descriptor) Gas() Handle { return Handle{Kind: HandleGas} }

// Object returns the input for id, adding it once.
func (d *Descriptor) Object(id types.ObjectID) Handle {
	if i, ok := d.objects[id]; ok {
		return Handle{Kind: HandleInput, Index: i}
	}
	idCopy := id
	d.Inputs = append(d.Inputs, Input{Kind: "object", ObjectID: &idCopy})
	i := len(d.Inputs) - 1
	d.objects[id] = i
	return Handle{Kind: HandleInput, Index: i}
}

func (d *Descriptor) pure(typ, value string) Handle {
	d.Inputs = append(d.Inputs, Input{Kind: "pure", Type: typ, Value: value})
	return Handle{Kind: HandleInput, Index: len(d.Inputs) - 1}
}

func (d *Descriptor) address(a types.Address) Handle {
	if i, ok := d.addresses[a]; ok {
		return Handle{Kind: HandleInput, Index: i}
	}
	h := d.pure("address", a.String())
	d.addresses[a] = h.Index
	return h
}

func (d *Descriptor) command(c Command) int {
	d.Commands = append(d.Commands, c)
	return len(d.Commands) - 1
}

func (d *Descriptor) MergeCoins(target Handle, sources []Handle) {
	d.command(Command{Kind: CmdMergeCoins, Target: &target, Sources: sources})
}

func (d *Descriptor) SplitCoins(source Handle, amounts []uint64) []Handle {
	amts := make([]Handle, len(amounts))
	for i, a := range amounts {
		amts[i] = d.pure("u64", strconv.FormatUint(a, 10))
	}
	idx := d.command(Command{Kind: CmdSplitCoins, Coin: &source, Amounts: amts})
	out := make([]Handle, len(amounts))
	for i := range amounts {
		out[i] = Handle{Kind: HandleNested, Index: idx, Sub: i}
	}
	return out
}

func (d *Descriptor) TransferObjects(objs []Handle, recipient types.Address) {
	addr := d.address(recipient)
	d.command(Command{Kind: CmdTransferObjects, Objects: objs, Address: &addr})
}

func (d *Descriptor) DestroyZero(coinType types.CoinType, coin Handle) {
	d.command(Command{
		Kind:          CmdMoveCall,
		Function:      DestroyZeroFunction,
		TypeArguments: []string{string(coinType)},
		Arguments:     []Handle{coin},
	})
}

// ObjectIDs lists every object input, in input order.
func (d *Descriptor) ObjectIDs() []types.ObjectID {
	var out []types.ObjectID
	for _, in := range d.Inputs {
		if in.ObjectID != nil {
			out = append(out, *in.ObjectID)
		}
	}
	return out
}

// JSON encodes the descriptor with indentation.
func (d *Descriptor) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
