package assembler

import (
	"context"
	"fmt"
	"sync"

	"github.com/Klingon-tech/coinforge/internal/ledger"
)

// FakeSigner is an in-memory Signer for tests and offline previews.
type FakeSigner struct {
	mu sync.Mutex

	DryRun      *ledger.DryRun
	SimulateErr error
	SubmitErr   error
	Effects     *ledger.Effects
	WaitErr     error

	// OnSubmit runs after a successful submit, e.g. to update a ledger fake.
	OnSubmit func(d *Descriptor)

	Submitted []*Descriptor
	Simulated int
}

var _ Signer = (*FakeSigner)(nil)

func (f *FakeSigner) Simulate(_ context.Context, d *Descriptor) (*ledger.DryRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Simulated++
	if f.SimulateErr != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrExternalCall, f.SimulateErr)
	}
	return f.DryRun, nil
}

func (f *FakeSigner) Submit(_ context.Context, d *Descriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", fmt.Errorf("%w: %w", ledger.ErrExternalCall, f.SubmitErr)
	}
	f.Submitted = append(f.Submitted, d)
	if f.OnSubmit != nil {
		f.OnSubmit(d)
	}
	return fmt.Sprintf("digest-%d", len(f.Submitted)), nil
}

func (f *FakeSigner) WaitForEffects(_ context.Context, digest string) (*ledger.Effects, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WaitErr != nil {
		return nil, fmt.Errorf("%w: %w", ledger.ErrExternalCall, f.WaitErr)
	}
	fx := ledger.Effects{Digest: digest, Success: true}
	if f.Effects != nil {
		fx = *f.Effects
		if fx.Digest == "" {
			fx.Digest = digest
		}
	}
	return &fx, nil
}
