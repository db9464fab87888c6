package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/session"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

// ── task ────────────────────────────────────────────────────────────────

func cmdTask(ctx context.Context, a *app, args []string) {
	if len(args) < 1 {
		fatal("Usage: coinforge-cli task <add|list|rm|clear> [flags]")
	}

	switch args[0] {
	case "add":
		cmdTaskAdd(ctx, a, args[1:])
	case "list":
		cmdTaskList(a)
	case "rm":
		if len(args) < 2 {
			fatal("Usage: coinforge-cli task rm <id|#>")
		}
		cmdTaskRemove(a, args[1])
	case "clear":
		if _, err := a.sess.ClearTasks(); err != nil {
			fatal("clear queue: %v", err)
		}
	default:
		fatal("Unknown task command: %s\nUsage: coinforge-cli task <add|list|rm|clear> [flags]", args[0])
	}
}

func cmdTaskAdd(ctx context.Context, a *app, args []string) {
	if len(args) < 1 {
		fatal("Usage: coinforge-cli task add <merge|split|transfer|objects> [flags]")
	}

	var task planner.Task
	switch args[0] {
	case "merge":
		task = mergeTask(args[1:])
	case "split":
		task = splitTask(ctx, a, args[1:])
	case "transfer":
		task = transferTask(ctx, a, args[1:])
	case "objects":
		fs := flag.NewFlagSet("task add objects", flag.ExitOnError)
		to := fs.String("to", "", "Recipient address")
		fs.Parse(args[1:])
		if *to == "" || fs.NArg() == 0 {
			fatal("Usage: coinforge-cli task add objects --to <addr> <object id>...")
		}
		recipient, ids := parseObjectTransfer(*to, fs.Args())
		task = planner.ObjectTransferTask{ObjectIDs: ids, Recipient: recipient}
	default:
		fatal("Unknown task kind: %s\nUsage: coinforge-cli task add <merge|split|transfer|objects> [flags]", args[0])
	}

	if _, err := a.sess.AddTask(ctx, task); err != nil {
		a.fail(err)
	}
}

func mergeTask(args []string) planner.MergeTask {
	fs := flag.NewFlagSet("task add merge", flag.ExitOnError)
	coinType := fs.String("type", "", "Coin type")
	count := fs.Int("count", 0, "Number of objects to merge into the first")
	all := fs.Bool("all", false, "Merge every object into the first")
	fs.Parse(args)

	if *coinType == "" || (*count == 0 && !*all) {
		fatal("Usage: coinforge-cli task add merge --type <t> (--count <n> | --all)")
	}
	return planner.MergeTask{
		CoinType:    types.CoinType(strings.TrimSpace(*coinType)),
		SourceCount: *count,
		MergeAll:    *all,
	}
}

func splitTask(ctx context.Context, a *app, args []string) planner.SplitTask {
	fs := flag.NewFlagSet("task add split", flag.ExitOnError)
	coinType := fs.String("type", "", "Coin type")
	pieces := fs.Int("pieces", 0, "Number of new coins")
	amount := fs.String("amount", "", "Amount per new coin")
	fs.Parse(args)

	if *coinType == "" || *pieces == 0 || *amount == "" {
		fatal("Usage: coinforge-cli task add split --type <t> --pieces <n> --amount <x>")
	}
	ct := types.CoinType(strings.TrimSpace(*coinType))
	return planner.SplitTask{
		CoinType:   ct,
		Pieces:     *pieces,
		AmountEach: parseAmount(ctx, a, ct, *amount, "--amount"),
	}
}

func transferTask(ctx context.Context, a *app, args []string) planner.TransferTask {
	fs := flag.NewFlagSet("task add transfer", flag.ExitOnError)
	coinType := fs.String("type", "", "Coin type")
	var tos []string
	fs.Func("to", "Recipient address (repeatable)", func(s string) error {
		tos = append(tos, s)
		return nil
	})
	amount := fs.String("amount", "", "Amount per recipient")
	csvPath := fs.String("csv", "", "CSV file of address,amount rows")
	equal := fs.Bool("equal", false, "Split --total equally among recipients")
	total := fs.String("total", "", "Total to split with --equal")
	fs.Parse(args)

	const usageLine = "Usage: coinforge-cli task add transfer --type <t> (--to <addr>... (--amount <x> | --equal --total <x>) | --csv <file>)"
	if *coinType == "" {
		fatal(usageLine)
	}
	ct := types.CoinType(strings.TrimSpace(*coinType))
	task := planner.TransferTask{CoinType: ct}

	switch {
	case *csvPath != "":
		if len(tos) > 0 || *equal {
			fatal("--csv cannot be combined with --to or --equal")
		}
		meta, err := a.sess.Meta(ctx, ct)
		if err != nil {
			a.fail(err)
		}
		task.Recipients = loadRecipients(*csvPath, meta.Decimals)

	case len(tos) > 0:
		for _, s := range tos {
			addr, err := types.ParseAddress(s)
			if err != nil {
				fatal("--to: %v", err)
			}
			task.Recipients = append(task.Recipients, planner.Recipient{Address: addr})
		}
		if *equal {
			if *total == "" {
				fatal(usageLine)
			}
			task.EqualSplit = true
			task.Total = parseAmount(ctx, a, ct, *total, "--total")
			break
		}
		if *amount == "" {
			fatal(usageLine)
		}
		each := parseAmount(ctx, a, ct, *amount, "--amount")
		for i := range task.Recipients {
			task.Recipients[i].Amount = each
		}

	default:
		fatal(usageLine)
	}
	return task
}

// parseAmount scales a display amount of ct to base units.
func parseAmount(ctx context.Context, a *app, ct types.CoinType, human, flagName string) types.Amount {
	meta, err := a.sess.Meta(ctx, ct)
	if err != nil {
		a.fail(err)
	}
	amt, err := units.ToBaseUnits(units.NormalizeNumericInput(strings.TrimSpace(human)), meta.Decimals)
	if err != nil {
		fatal("%s: %v", flagName, err)
	}
	return amt
}

func cmdTaskList(a *app) {
	entries, err := a.sess.Tasks()
	if err != nil {
		fatal("list queue: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("Queue is empty.")
		return
	}
	fmt.Printf("Queued tasks: %d\n\n", len(entries))
	for i, e := range entries {
		fmt.Printf("  [%d] %s\n", i+1, e.Summary)
		fmt.Printf("      ID:    %s\n", e.ID)
		fmt.Printf("      Added: %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func cmdTaskRemove(a *app, ref string) {
	entries, err := a.sess.Tasks()
	if err != nil {
		fatal("list queue: %v", err)
	}

	var id uuid.UUID
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(entries) {
			fatal("no task #%d (queue has %d)", n, len(entries))
		}
		id = entries[n-1].ID
	} else {
		id, err = uuid.Parse(ref)
		if err != nil {
			fatal("invalid task id %q", ref)
		}
	}
	if err := a.sess.RemoveTask(id); err != nil {
		fatal("remove task: %v", err)
	}
}

// ── preview ─────────────────────────────────────────────────────────────

func cmdPreview(ctx context.Context, a *app) {
	if _, err := preview(ctx, a); err != nil {
		a.fail(err)
	}
}

func preview(ctx context.Context, a *app) (*session.Preview, error) {
	p, err := a.sess.Preview(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Tasks: %d\n\n", len(p.Tasks))
	for i, t := range p.Tasks {
		fmt.Printf("  [%d] %s\n", i+1, t.Entry.Summary)
		if t.Remainder != "" {
			fmt.Printf("      Remaining: %s\n", t.Remainder)
		}
	}

	fmt.Printf("\nOperations: %d\n", len(p.Plan.Ops))
	for i, op := range p.Plan.Ops {
		fmt.Printf("  %d. %s\n", i, op)
	}

	gasName := types.GasCoinType.Name()
	fmt.Println()
	fmt.Printf("Gas budget:     %s %s\n", gas.FormatAmount(types.NewAmount(p.GasBudget), gas.DisplayPlaces), gasName)
	if p.GasPrice > 0 {
		fmt.Printf("Gas price:      %d\n", p.GasPrice)
	} else {
		fmt.Printf("Gas price:      %s\n", gas.Placeholder)
	}
	fmt.Printf("Estimated fee:  %s\n", withUnit(p.Estimate, gasName))
	fmt.Printf("Simulated fee:  %s\n", withUnit(p.Simulated, gasName))
	if p.Rebate != "" {
		fmt.Printf("Storage rebate: %s %s\n", p.Rebate, gasName)
	}
	fmt.Printf("Snapshot:       %s\n", p.Fingerprint.String()[:16])
	return p, nil
}

func withUnit(amount, unit string) string {
	if amount == gas.Placeholder {
		return amount
	}
	return amount + " " + unit
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		p, err := preview(ctx, a)
		if err != nil {
			a.fail(err)
		}
		fmt.Println()
		if !confirm(fmt.Sprintf("Send %d task(s) as one transaction?", len(p.Tasks))) {
			fmt.Println("Aborted.")
			return
		}
	}
	if res := a.sess.Send(ctx); !res.Ok {
		a.fail(res.Err)
	}
}

// ── Confirmation helper ─────────────────────────────────────────────────

func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fatal("%s Refusing to continue without a terminal; pass --yes.", prompt)
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
