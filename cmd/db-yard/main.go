package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dbyard/db-yard/internal/adapter/logger"
	"github.com/dbyard/db-yard/internal/adapter/platform"
	"github.com/dbyard/db-yard/internal/adapter/token"
	"github.com/dbyard/db-yard/internal/domain"
	"github.com/dbyard/db-yard/internal/httpd"
	"github.com/dbyard/db-yard/internal/ledger"
	"github.com/dbyard/db-yard/internal/orchestrator"
	"github.com/dbyard/db-yard/internal/proxyconf"
	"github.com/dbyard/db-yard/internal/spawner"
	"github.com/dbyard/db-yard/internal/sqlrunner"
)

const usage = `db-yard — supervises sqlpage/surveilr-backed SQLite files under a cargo root

Usage:
  db-yard start [flags]        One-shot materialize, then exit
  db-yard watch [flags]        Run the continuous supervisor loop
  db-yard ls [flags]           List services from a spawn-state home
  db-yard ps [flags]           List processes tagged as owned by db-yard
  db-yard kill [flags]         Terminate recorded pids
  db-yard proxy-conf [flags]   Generate reverse-proxy configs from the ledger

Run "db-yard COMMAND --help" for command-specific flags.
`

// printFlags formats flag defaults with -- prefix instead of Go's default single -.
func printFlags(fs *flag.FlagSet) {
	fs.VisitAll(func(f *flag.Flag) {
		isBool := f.DefValue == "false" || f.DefValue == "true"
		if isBool {
			fmt.Fprintf(os.Stderr, "  --%-20s %s\n", f.Name, f.Usage)
		} else {
			label := f.Name + " " + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			fmt.Fprintf(os.Stderr, "  --%-20s %s\n", label, f.Usage)
		}
	})
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
		os.Exit(0)
	case "start":
		startCmd(os.Args[2:])
	case "watch":
		watchCmd(os.Args[2:])
	case "ls":
		lsCmd(os.Args[2:])
	case "ps":
		psCmd(os.Args[2:])
	case "kill":
		killCmd(os.Args[2:])
	case "proxy-conf":
		proxyConfCmd(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "db-yard: unknown command %q\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// globalFlags are shared by start/watch: the options spec §6 calls out as
// "recognized global options".
type globalFlags struct {
	cargoHome         *string
	spawnStateHome    *string
	watchGlobs        stringList
	listen            *string
	reconcileMs       *int
	adoptForeignState *bool
	verbose           *string
	adminPort         *int
	adminHost         *string
	killAllOnExit     *bool
}

// stringList collects a repeatable --watch GLOB flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func bindGlobalFlags(fs *flag.FlagSet) *globalFlags {
	plat := platform.New()
	g := &globalFlags{}
	g.cargoHome = fs.String("cargo-home", plat.ResolveCargoHome(""), "root to discover cargo (databases) under")
	g.spawnStateHome = fs.String("spawn-state-home", plat.ResolveLedgerRoot(""), "ledger root")
	fs.Var(&g.watchGlobs, "watch", "override default glob set (repeatable)")
	g.listen = fs.String("listen", "127.0.0.1", "bind host for children")
	g.reconcileMs = fs.Int("reconcile-ms", 3000, "periodic sweep interval in milliseconds")
	g.adoptForeignState = fs.Bool("adopt-foreign-state", false, "allow reconciliation over records owned by a different token")
	g.verbose = fs.String("verbose", "essential", "event verbosity: essential|comprehensive")
	g.adminPort = fs.Int("admin-port", 0, "bind the admin HTTP surface on this port (0 disables it)")
	g.adminHost = fs.String("admin-host", "127.0.0.1", "bind host for the admin HTTP surface")
	g.killAllOnExit = fs.Bool("kill-all-on-exit", false, "terminate all owned pids across owned sessions on exit")
	return g
}

func newLogger(verbose string) domain.Logger {
	v := logger.Essential
	if verbose == string(logger.Comprehensive) {
		v = logger.Comprehensive
	}
	return logger.New(os.Stderr, v, isTTY(os.Stderr))
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func orchestratorConfig(g *globalFlags) orchestrator.Config {
	return orchestrator.Config{
		Roots:             []string{*g.cargoHome},
		Globs:             g.watchGlobs,
		LedgerRoot:        *g.spawnStateHome,
		ListenHost:        *g.listen,
		PortStart:         20000,
		ReconcileInterval: time.Duration(*g.reconcileMs) * time.Millisecond,
		Debounce:          400 * time.Millisecond,
		RespawnBackoffMs:  15000,
		AdoptForeignState: *g.adoptForeignState,
		SqliteBinary:      "sqlite3",
	}
}

func maybeServeAdmin(ctx context.Context, g *globalFlags, home string, log domain.Logger) {
	if *g.adminPort == 0 {
		return
	}
	lister := adminLister{}
	h := httpd.New(home, lister, sqlrunner.New("sqlite3"), log, nil)
	addr := fmt.Sprintf("%s:%d", *g.adminHost, *g.adminPort)
	srv := &http.Server{Addr: addr, Handler: h}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("admin surface listening", "addr", addr)
}

// adminLister adapts ledger.ScanStates to httpd.StateLister without pulling
// an *orchestrator.Orchestrator into the admin server's dependency set.
type adminLister struct{}

func (adminLister) ListSessionStates(home string) ([]domain.SpawnedState, []error) {
	return ledger.ScanStates(home)
}

func startCmd(args []string) {
	fs := flag.NewFlagSet("db-yard start", flag.ExitOnError)
	g := bindGlobalFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `One-shot materialize: discover, classify, spawn/refresh/stop, then exit.

Usage:
  db-yard start [flags]

Flags:`)
		printFlags(fs)
	}
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	log := newLogger(*g.verbose)
	o := orchestrator.New(log, token.NewUUIDGenerator())
	sess, err := o.StartSession(orchestratorConfig(g))
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	maybeServeAdmin(ctx, g, sess.Ledger.SessionHome(), log)

	summary, discrepancies := sess.RunOnce(ctx)
	log.Info("materialize complete",
		"spawned", summary.Spawned, "refreshed", summary.Refreshed,
		"stopped", summary.Stopped, "skipped", summary.Skipped, "orphaned", summary.Orphaned,
		"discrepancies", len(discrepancies))

	if *g.killAllOnExit {
		killAllOwned(*g.spawnStateHome, log)
	}

	if summary.Skipped > 0 || len(summary.Errors) > 0 {
		os.Exit(1)
	}
}

func watchCmd(args []string) {
	fs := flag.NewFlagSet("db-yard watch", flag.ExitOnError)
	g := bindGlobalFlags(fs)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Run the continuous supervisor loop until SIGINT/SIGTERM.

Usage:
  db-yard watch [flags]

Flags:`)
		printFlags(fs)
	}
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	log := newLogger(*g.verbose)
	o := orchestrator.New(log, token.NewUUIDGenerator())
	sess, err := o.StartSession(orchestratorConfig(g))
	if err != nil {
		fatal(err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	var received os.Signal
	go func() {
		received = <-sigCh
		cancel()
	}()

	maybeServeAdmin(ctx, g, sess.Ledger.SessionHome(), log)

	err = sess.Watch(ctx)

	if *g.killAllOnExit {
		killAllOwned(*g.spawnStateHome, log)
	}

	switch received {
	case syscall.SIGINT:
		os.Exit(130)
	case syscall.SIGTERM:
		os.Exit(143)
	default:
		if err != nil {
			fatal(err)
		}
	}
}

func killAllOwned(ledgerRoot string, log domain.Logger) {
	entries, err := os.ReadDir(ledgerRoot)
	if err != nil {
		return
	}
	o := orchestrator.New(log, token.NewUUIDGenerator())
	sp := spawner.New(log)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		home := filepath.Join(ledgerRoot, e.Name())
		if _, err := o.Kill(home, orchestrator.KillOptions{}, sp); err != nil {
			log.Error("kill-all-on-exit failed", "home", home, "err", err)
		}
	}
}

func lsCmd(args []string) {
	fs := flag.NewFlagSet("db-yard ls", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `List services from a spawn-state home, marking alive/dead.

Usage:
  db-yard ls [flags]

Flags:`)
		printFlags(fs)
	}
	home := fs.String("spawn-state-home", platform.New().ResolveLedgerRoot(""), "ledger root, or a specific session directory")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	resolved := resolveSessionHome(*home)
	states, errs := ledger.ScanStates(resolved)
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "db-yard ls: %v\n", err)
	}

	if len(states) == 0 {
		fmt.Println("No services found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tPID\tSTATUS\tPORT\tDATABASE")
	for _, st := range states {
		if st.Err != nil {
			fmt.Fprintf(w, "?\t?\t?\tERROR: %v\t?\t?\n", st.Err)
			continue
		}
		status := "dead"
		if st.Alive {
			status = "alive"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
			st.Context.Service.ID, st.Context.Service.Kind, st.Context.Spawned.PID,
			status, st.Context.Listen.Port, st.Context.Supplier.Location)
	}
	w.Flush()
}

func psCmd(args []string) {
	fs := flag.NewFlagSet("db-yard ps", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `List OS processes tagged as owned by db-yard.

Usage:
  db-yard ps [flags]

Flags:`)
		printFlags(fs)
	}
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	log := newLogger("essential")
	o := orchestrator.New(log, token.NewUUIDGenerator())
	tagged, err := o.ListTaggedProcesses()
	if err != nil {
		fatal(err)
	}
	if len(tagged) == 0 {
		fmt.Println("No tagged processes found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tSESSION\tSERVICE\tCONTEXT\tISSUE")
	for _, tp := range tagged {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", tp.PID, tp.SessionID, tp.ServiceID, tp.ContextPath, tp.Issue)
	}
	w.Flush()
}

func killCmd(args []string) {
	fs := flag.NewFlagSet("db-yard kill", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Terminate recorded pids; optionally remove the state directory.

Usage:
  db-yard kill [flags]

Flags:`)
		printFlags(fs)
	}
	home := fs.String("spawn-state-home", platform.New().ResolveLedgerRoot(""), "ledger root, or a specific session directory")
	clean := fs.Bool("clean", false, "remove the session directory after killing its pids")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	log := newLogger("essential")
	resolved := resolveSessionHome(*home)
	o := orchestrator.New(log, token.NewUUIDGenerator())
	counts, err := o.Kill(resolved, orchestrator.KillOptions{Clean: *clean}, spawner.New(log))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("killed=%d already-dead=%d errored=%d\n", counts.Killed, counts.AlreadyDead, counts.Errored)
}

func proxyConfCmd(args []string) {
	fs := flag.NewFlagSet("db-yard proxy-conf", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Generate reverse-proxy configs from the ledger.

Usage:
  db-yard proxy-conf --type nginx|traefik|both [flags]

Flags:`)
		printFlags(fs)
	}
	home := fs.String("spawn-state-home", platform.New().ResolveLedgerRoot(""), "ledger root, or a specific session directory")
	kind := fs.String("type", "nginx", "nginx, traefik, or both")
	nginxOut := fs.String("nginx-out", "", "directory to write nginx configs into (stdout if empty)")
	traefikOut := fs.String("traefik-out", "", "directory to write traefik configs into (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	resolved := resolveSessionHome(*home)
	states, errs := ledger.ScanStates(resolved)
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "db-yard proxy-conf: %v\n", err)
	}

	contexts := make([]domain.SpawnedContext, 0, len(states))
	for _, st := range states {
		if st.Err == nil {
			contexts = append(contexts, st.Context)
		}
	}

	switch *kind {
	case "nginx":
		emitConfig(proxyconf.Generate(proxyconf.Nginx, contexts), *nginxOut)
	case "traefik":
		emitConfig(proxyconf.Generate(proxyconf.Traefik, contexts), *traefikOut)
	case "both":
		emitConfig(proxyconf.Generate(proxyconf.Nginx, contexts), *nginxOut)
		emitConfig(proxyconf.Generate(proxyconf.Traefik, contexts), *traefikOut)
	default:
		fatal(fmt.Errorf("unknown --type %q, want nginx, traefik, or both", *kind))
	}
}

func emitConfig(files []proxyconf.File, outDir string) {
	if outDir == "" {
		for _, f := range files {
			fmt.Printf("# ---- %s ----\n%s\n", f.Name, f.Content)
		}
		return
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fatal(err)
	}
	for _, f := range files {
		path := filepath.Join(outDir, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			fatal(err)
		}
	}
}

// resolveSessionHome follows the `.current-session` pointer under root when
// one is present, matching the ledger's own layout (spec §6); otherwise it
// treats root itself as the session directory.
func resolveSessionHome(root string) string {
	if home, err := ledger.CurrentSessionHome(root); err == nil && home != "" {
		return home
	}
	return root
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "db-yard: %v\n", err)
	os.Exit(1)
}
