package assembler

import (
	"errors"
	"fmt"

	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/internal/planner"
)

// ErrUnassemblable means a plan cannot be expressed as builder calls.
var ErrUnassemblable = errors.New("plan cannot be assembled")

// Assemble replays plan against b in order. Outputs of split operations are
// tracked so later operations can refer to them.
func Assemble(plan *planner.Plan, b Builder, gasBudget uint64) error {
	b.SetSender(plan.Owner)
	b.SetGasBudget(gasBudget)

	results := make(map[int][]Handle)
	resolve := func(a planner.Arg) (Handle, error) {
		switch a.Kind {
		case planner.ArgGas:
			return b.Gas(), nil
		case planner.ArgObject:
			return b.Object(a.Object), nil
		case planner.ArgResult:
			outs, ok := results[a.Op]
			if !ok || a.Index < 0 || a.Index >= len(outs) {
				return Handle{}, fmt.Errorf("%w: %s refers to no prior output", ErrUnassemblable, a)
			}
			return outs[a.Index], nil
		default:
			return Handle{}, fmt.Errorf("%w: unknown argument kind %d", ErrUnassemblable, a.Kind)
		}
	}
	resolveAll := func(args []planner.Arg) ([]Handle, error) {
		out := make([]Handle, len(args))
		for i, a := range args {
			h, err := resolve(a)
			if err != nil {
				return nil, err
			}
			out[i] = h
		}
		return out, nil
	}

	for i, op := range plan.Ops {
		switch o := op.(type) {
		case planner.MergeOp:
			target, err := resolve(o.Target)
			if err != nil {
				return err
			}
			sources, err := resolveAll(o.Sources)
			if err != nil {
				return err
			}
			b.MergeCoins(target, sources)

		case planner.SplitOp:
			src, err := resolve(o.Source)
			if err != nil {
				return err
			}
			amounts := make([]uint64, len(o.Amounts))
			for j, a := range o.Amounts {
				if a.IsNil() || a.IsNegative() || !a.IsUint64() {
					return fmt.Errorf("%w: split amount %s does not fit in u64", ErrUnassemblable, a)
				}
				amounts[j] = a.Uint64()
			}
			results[i] = b.SplitCoins(src, amounts)

		case planner.TransferOp:
			objs, err := resolveAll(o.Objects)
			if err != nil {
				return err
			}
			b.TransferObjects(objs, o.Recipient)

		case planner.DestroyZeroOp:
			coin, err := resolve(o.Coin)
			if err != nil {
				return err
			}
			b.DestroyZero(o.CoinType, coin)

		default:
			return fmt.Errorf("%w: unsupported op %T", ErrUnassemblable, op)
		}
	}

	klog.Assembler.Debug().
		Int("ops", len(plan.Ops)).
		Uint64("gas_budget", gasBudget).
		Msg("Plan assembled")
	return nil
}

// Build assembles plan into a fresh Descriptor.
func Build(plan *planner.Plan, gasBudget uint64) (*Descriptor, error) {
	d := NewDescriptor()
	if err := Assemble(plan, d, gasBudget); err != nil {
		return nil, err
	}
	return d, nil
}
