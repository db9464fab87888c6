package assembler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Klingon-tech/coinforge/internal/ledger"
	klog "github.com/Klingon-tech/coinforge/internal/log"
)

// Signer is the external signing and submission collaborator. coinforge
// never sees keys; it hands over a descriptor and reads back results.
type Signer interface {
	Simulate(ctx context.Context, d *Descriptor) (*ledger.DryRun, error)
	Submit(ctx context.Context, d *Descriptor) (digest string, err error)
	WaitForEffects(ctx context.Context, digest string) (*ledger.Effects, error)
}

// ExecSigner runs an external command for each step. The command receives
// the step name ("simulate", "submit" or "wait") as its last argument and
// the descriptor (or the digest, for "wait") on stdin, and must print a JSON
// reply on stdout. A non-zero exit is reported with the command's stderr.
type ExecSigner struct {
	argv []string
}

var _ Signer = (*ExecSigner)(nil)

// NewExecSigner parses a whitespace-separated command line.
func NewExecSigner(command string) (*ExecSigner, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("signer command is empty")
	}
	return &ExecSigner{argv: argv}, nil
}

func (s *ExecSigner) run(ctx context.Context, step string, stdin []byte, reply any) error {
	args := append(append([]string(nil), s.argv[1:]...), step)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	klog.Assembler.Debug().Str("command", s.argv[0]).Str("step", step).Msg("Running signer")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: signer %s: %s", ledger.ErrExternalCall, step, msg)
	}
	if err := json.Unmarshal(stdout.Bytes(), reply); err != nil {
		return fmt.Errorf("%w: signer %s: decode reply: %v", ledger.ErrExternalCall, step, err)
	}
	return nil
}

// Simulate dry-runs the descriptor.
func (s *ExecSigner) Simulate(ctx context.Context, d *Descriptor) (*ledger.DryRun, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var dr ledger.DryRun
	if err := s.run(ctx, "simulate", body, &dr); err != nil {
		return nil, err
	}
	return &dr, nil
}

// Submit signs and submits the descriptor and returns its digest.
func (s *ExecSigner) Submit(ctx context.Context, d *Descriptor) (string, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	var reply struct {
		Digest string `json:"digest"`
	}
	if err := s.run(ctx, "submit", body, &reply); err != nil {
		return "", err
	}
	if reply.Digest == "" {
		return "", fmt.Errorf("%w: signer submit: empty digest", ledger.ErrExternalCall)
	}
	return reply.Digest, nil
}

// WaitForEffects blocks until the transaction is final.
func (s *ExecSigner) WaitForEffects(ctx context.Context, digest string) (*ledger.Effects, error) {
	var fx ledger.Effects
	if err := s.run(ctx, "wait", []byte(digest), &fx); err != nil {
		return nil, err
	}
	if fx.Digest == "" {
		fx.Digest = digest
	}
	return &fx, nil
}
