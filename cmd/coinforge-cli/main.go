// coinforge-cli manages the coin objects of a Sui wallet: it lists balances,
// queues merge, split and transfer tasks, and sends them as one transaction
// through an external signer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Klingon-tech/coinforge/config"
	"github.com/Klingon-tech/coinforge/internal/assembler"
	"github.com/Klingon-tech/coinforge/internal/csvimport"
	"github.com/Klingon-tech/coinforge/internal/gas"
	"github.com/Klingon-tech/coinforge/internal/inventory"
	"github.com/Klingon-tech/coinforge/internal/ledger"
	klog "github.com/Klingon-tech/coinforge/internal/log"
	"github.com/Klingon-tech/coinforge/internal/metrics"
	"github.com/Klingon-tech/coinforge/internal/notify"
	"github.com/Klingon-tech/coinforge/internal/planner"
	"github.com/Klingon-tech/coinforge/internal/queue"
	"github.com/Klingon-tech/coinforge/internal/rpcclient"
	"github.com/Klingon-tech/coinforge/internal/session"
	"github.com/Klingon-tech/coinforge/internal/storage"
	"github.com/Klingon-tech/coinforge/internal/units"
	"github.com/Klingon-tech/coinforge/pkg/types"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Version {
		fmt.Printf("coinforge-cli %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}

	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	// Commands that need no wallet.
	switch cmd {
	case "gas":
		cmdGas(ctx, cfg, cmdArgs)
		return
	case "normalize":
		cmdNormalize(cmdArgs)
		return
	case "import-recipients":
		cmdImportRecipients(cmdArgs)
		return
	case "help":
		usage()
		return
	}

	a := openApp(cfg)
	defer a.close()

	switch cmd {
	case "balances":
		cmdBalances(ctx, a, cmdArgs)
	case "coins":
		cmdCoins(ctx, a, cmdArgs)
	case "objects":
		cmdObjects(ctx, a, cmdArgs)
	case "dust":
		cmdDust(ctx, a)
	case "burn-dust":
		cmdBurnDust(ctx, a, cmdArgs)
	case "transfer-objects":
		cmdTransferObjects(ctx, a, cmdArgs)
	case "task":
		cmdTask(ctx, a, cmdArgs)
	case "preview":
		cmdPreview(ctx, a)
	case "send":
		cmdSend(ctx, a, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		a.close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: coinforge-cli [global flags] <command> [flags]

%s
Commands:
  balances [--filter all|verified|unverified] [--search <text>]
                                  Show holdings per coin type
  coins <coin type>               List the coin objects of one type
  objects [--type <struct type>]  List owned objects
  dust                            Show zero-balance coins
  burn-dust [--yes]               Destroy zero-balance coins now
  transfer-objects --to <addr> <object id>...
                                  Send whole objects now

  task add merge --type <t> (--count <n> | --all)
                                  Queue a merge
  task add split --type <t> --pieces <n> --amount <x>
                                  Queue a split (amount per piece)
  task add transfer --type <t> --to <addr> [--to <addr>...] --amount <x>
                                  Queue a transfer (amount per recipient)
  task add transfer --type <t> --csv <file>
                                  Queue a transfer to every row of a CSV
  task add transfer --type <t> --to <addr>... --equal --total <x>
                                  Queue a transfer splitting total equally
  task add objects --to <addr> <object id>...
                                  Queue an object transfer
  task list                       Show queued tasks
  task rm <id|#>                  Remove a queued task
  task clear                      Remove every queued task
  preview                         Plan the queue and estimate gas
                                  (dry-runs it when a signer is set)
  send [--yes]                    Send the queue as one transaction

  gas                             Show reference gas price and estimates
  gas watch                       Poll the gas price (serves --metrics-addr)
  import-recipients <csv> [--decimals <n>]
                                  Check a recipient CSV
  import-recipients --template    Print a sample recipient CSV
  normalize <input>               Tidy a numeric input
`, config.GlobalUsage)
}

// ── Wiring ──────────────────────────────────────────────────────────────

type app struct {
	cfg  *config.Config
	db   *storage.BadgerDB
	sess *session.Session
}

func newReader(cfg *config.Config) *ledger.SuiClient {
	client := rpcclient.NewWithTimeout(cfg.RPC.URL, cfg.RPC.Timeout)
	client.SetObserver(metrics.ObserveRPC)
	klog.Ledger.Debug().Str("endpoint", client.Endpoint()).Msg("Ledger client ready")
	return ledger.NewSuiClient(client, cfg.RPC.PageLimit)
}

func openApp(cfg *config.Config) *app {
	if cfg.Owner == "" {
		fatal("no wallet address: set --owner, owner in %s or COINFORGE_OWNER", cfg.ConfigFile())
	}
	owner, err := types.ParseAddress(cfg.Owner)
	if err != nil {
		fatal("owner: %v", err)
	}

	db, err := storage.NewBadger(cfg.QueueDir())
	if err != nil {
		fatal("open queue: %v", err)
	}
	// One queue per wallet.
	q := queue.New(storage.NewPrefixDB(db, []byte(owner.String()+"/")))

	var signer assembler.Signer
	if cfg.Signer.Command != "" {
		s, err := assembler.NewExecSigner(cfg.Signer.Command)
		if err != nil {
			db.Close()
			fatal("signer: %v", err)
		}
		signer = s
	}

	notifiers := notify.Multi{notify.NewConsole(os.Stdout)}
	if cfg.Notify.Desktop {
		notifiers = append(notifiers, notify.Desktop{App: "coinforge"})
	}

	sess := session.New(
		session.Env{Owner: owner, Ledger: newReader(cfg)},
		q,
		signer,
		session.Config{
			Budgets:    budgets(cfg),
			MaxDestroy: cfg.Burn.MaxBatch,
			Notifier:   notifiers,
			Simulate:   signer != nil,
		},
	)
	sess.Inventory().SetConcurrency(cfg.RPC.Concurrency)
	return &app{cfg: cfg, db: db, sess: sess}
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		klog.Storage.Warn().Err(err).Msg("Closing queue database")
	}
}

// fail exits after an error the session has already reported.
func (a *app) fail(err error) {
	klog.Logger.Error().Err(err).Msg("Command failed")
	a.close()
	os.Exit(1)
}

func budgets(cfg *config.Config) planner.Budgets {
	b := cfg.Gas.Budget
	return planner.Budgets{
		Merge:    b.Merge,
		Split:    b.Split,
		Transfer: b.Transfer,
		Burn:     b.Burn,
		Object:   b.Object,
	}
}

// ── balances ────────────────────────────────────────────────────────────

func cmdBalances(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("balances", flag.ExitOnError)
	filterStr := fs.String("filter", "all", "all, verified or unverified")
	search := fs.String("search", "", "Match symbol, name or coin type")
	fs.Parse(args)

	filter, err := inventory.ParseFilter(*filterStr)
	if err != nil {
		fatal("%v", err)
	}
	metas, err := a.sess.Holdings(ctx, filter, *search)
	if err != nil {
		a.fail(err)
	}

	fmt.Printf("Owner: %s\n", a.sess.Owner())
	if len(metas) == 0 {
		fmt.Println("No coins found.")
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SYMBOL\tBALANCE\tOBJECTS\tVERIFIED\tCOIN TYPE")
	for _, m := range metas {
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\t%s\n",
			m.Symbol, units.ToHuman(m.TotalBalance, m.Decimals, 4), m.ObjectCount, yesNo(m.Verified), m.CoinType)
	}
	w.Flush()
}

// ── coins ───────────────────────────────────────────────────────────────

func cmdCoins(ctx context.Context, a *app, args []string) {
	if len(args) < 1 {
		fatal("Usage: coinforge-cli coins <coin type>")
	}
	ct := types.CoinType(strings.TrimSpace(args[0]))
	meta, err := a.sess.Meta(ctx, ct)
	if err != nil {
		a.fail(err)
	}
	coins, err := a.sess.Coins(ctx, ct)
	if err != nil {
		a.fail(err)
	}

	fmt.Printf("%s (%s): %d object(s)\n\n", meta.Symbol, ct, len(coins))
	for i, c := range coins {
		fmt.Printf("  [%d] %s  %s\n", i, c.ObjectID, units.ToHuman(c.Balance, meta.Decimals, int(meta.Decimals)))
	}
}

// ── objects ─────────────────────────────────────────────────────────────

func cmdObjects(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("objects", flag.ExitOnError)
	structType := fs.String("type", "", "Only objects of this Move struct type")
	fs.Parse(args)

	objs, err := a.sess.OwnedObjects(ctx, *structType)
	if err != nil {
		fatal("list objects: %v", err)
	}
	if len(objs) == 0 {
		fmt.Println("No objects found.")
		return
	}
	fmt.Printf("Objects: %d\n\n", len(objs))
	for _, o := range objs {
		fmt.Printf("  %s  v%d  %s\n", o.ObjectID, o.Version, o.Type)
	}
}

// ── dust ────────────────────────────────────────────────────────────────

func cmdDust(ctx context.Context, a *app) {
	scan, err := a.sess.ScanDust(ctx)
	if err != nil {
		a.fail(err)
	}
	printDust(scan)
}

func printDust(scan *session.DustScan) {
	if len(scan.Coins) == 0 {
		fmt.Println("No zero-balance coins.")
		return
	}
	fmt.Printf("Zero-balance coins: %d\n\n", len(scan.Coins))
	for _, g := range scan.Groups {
		fmt.Printf("  %-12s %d\n", g.Symbol, g.Count)
	}
	fmt.Printf("\nEstimated rebate: %s %s\n", scan.Rebate, types.GasCoinType.Name())
}

func cmdBurnDust(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("burn-dust", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		scan, err := a.sess.ScanDust(ctx)
		if err != nil {
			a.fail(err)
		}
		printDust(scan)
		if len(scan.Coins) == 0 {
			return
		}
		if !confirm(fmt.Sprintf("Destroy %d coin(s)?", len(scan.Coins))) {
			fmt.Println("Aborted.")
			return
		}
	}
	if res := a.sess.BurnDust(ctx); !res.Ok {
		a.fail(res.Err)
	}
}

// ── transfer-objects ────────────────────────────────────────────────────

func cmdTransferObjects(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("transfer-objects", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	fs.Parse(args)

	if *to == "" || fs.NArg() == 0 {
		fatal("Usage: coinforge-cli transfer-objects --to <addr> <object id>...")
	}
	recipient, ids := parseObjectTransfer(*to, fs.Args())
	if res := a.sess.TransferObjects(ctx, ids, recipient); !res.Ok {
		a.fail(res.Err)
	}
}

func parseObjectTransfer(to string, rawIDs []string) (types.Address, []types.ObjectID) {
	recipient, err := types.ParseAddress(to)
	if err != nil {
		fatal("--to: %v", err)
	}
	ids := make([]types.ObjectID, 0, len(rawIDs))
	for _, s := range rawIDs {
		id, err := types.ParseObjectID(s)
		if err != nil {
			fatal("%v", err)
		}
		ids = append(ids, id)
	}
	return recipient, ids
}

// ── gas ─────────────────────────────────────────────────────────────────

func cmdGas(ctx context.Context, cfg *config.Config, args []string) {
	reader := newReader(cfg)
	if len(args) > 0 && args[0] == "watch" {
		cmdGasWatch(ctx, cfg, reader)
		return
	}
	if len(args) > 0 {
		fatal("Unknown gas command: %s\nUsage: coinforge-cli gas [watch]", args[0])
	}

	price, err := reader.GetReferenceGasPrice(ctx)
	if err != nil {
		fatal("reference gas price: %v", err)
	}
	b := budgets(cfg)
	fmt.Printf("Reference gas price: %d\n\n", price)
	fmt.Printf("  Merge:            %s %s\n", gas.EstimateFromBudget(price, b.Merge), types.GasCoinType.Name())
	fmt.Printf("  Split:            %s %s\n", gas.EstimateFromBudget(price, b.Split), types.GasCoinType.Name())
	fmt.Printf("  Transfer:         %s %s\n", gas.EstimateFromBudget(price, b.Transfer), types.GasCoinType.Name())
	fmt.Printf("  Burn dust:        %s %s\n", gas.EstimateFromBudget(price, b.Burn), types.GasCoinType.Name())
	fmt.Printf("  Object transfer:  %s %s\n", gas.EstimateFromBudget(price, b.Object), types.GasCoinType.Name())
}

func cmdGasWatch(ctx context.Context, cfg *config.Config, reader ledger.Reader) {
	w := gas.NewWatcher(reader, cfg.Gas.Poll)
	w.OnUpdate = func(price uint64, err error) {
		metrics.ObserveGasPoll(price, err)
		if err != nil {
			fmt.Printf("Gas price: %s (poll failed: %v)\n", gas.Placeholder, err)
			return
		}
		fmt.Printf("Gas price: %d\n", price)
	}

	if cfg.Metrics.Addr != "" {
		metrics.Register(prometheus.DefaultRegisterer)
		srv, err := metrics.Listen(cfg.Metrics.Addr, prometheus.DefaultGatherer)
		if err != nil {
			fatal("metrics: %v", err)
		}
		fmt.Printf("Serving metrics on http://%s/metrics\n", srv.Addr())
		go func() {
			if err := srv.Serve(ctx); err != nil {
				klog.Logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	w.Run(ctx)
}

// ── import-recipients ───────────────────────────────────────────────────

func cmdImportRecipients(args []string) {
	fs := flag.NewFlagSet("import-recipients", flag.ExitOnError)
	decimals := fs.Uint("decimals", 9, "Decimals of the coin the amounts are in")
	template := fs.Bool("template", false, "Print a sample CSV and exit")
	fs.Parse(args)

	if *template {
		if err := csvimport.WriteTemplate(os.Stdout); err != nil {
			fatal("%v", err)
		}
		return
	}
	if fs.NArg() < 1 {
		fatal("Usage: coinforge-cli import-recipients <csv> [--decimals <n>]")
	}
	if *decimals > units.MaxDecimals {
		fatal("--decimals must be at most %d", units.MaxDecimals)
	}

	recipients := loadRecipients(fs.Arg(0), uint8(*decimals))
	total := types.ZeroAmount()
	for _, r := range recipients {
		total = total.Add(r.Amount)
	}
	fmt.Printf("Recipients: %d\n\n", len(recipients))
	for i, r := range recipients {
		fmt.Printf("  [%d] %s  %s\n", i+1, r.Address, units.ToHuman(r.Amount, uint8(*decimals), int(*decimals)))
	}
	fmt.Printf("\nTotal: %s\n", units.ToHuman(total, uint8(*decimals), int(*decimals)))
}

func loadRecipients(path string, decimals uint8) []planner.Recipient {
	rows, err := csvimport.ParseFile(path)
	if err != nil {
		if errors.Is(err, csvimport.ErrEmpty) {
			fatal("%s: %v", path, err)
		}
		fatal("read %s: %v", path, err)
	}
	recipients, err := csvimport.Recipients(rows, decimals)
	if err != nil {
		fatal("%s: %v", path, err)
	}
	return recipients
}

// ── normalize ───────────────────────────────────────────────────────────

func cmdNormalize(args []string) {
	if len(args) < 1 {
		fatal("Usage: coinforge-cli normalize <input>")
	}
	fmt.Println(units.NormalizeNumericInput(args[0]))
}

// ── Helpers ─────────────────────────────────────────────────────────────

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
