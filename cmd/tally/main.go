// Command tally works on the books file directly, without a running tallyd.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"tallybook.org/internal/config"
	"tallybook.org/internal/ledger"
	"tallybook.org/internal/obs"
	"tallybook.org/internal/store/sqlite"
)

type app struct {
	books  *ledger.Book
	out    io.Writer
	in     *bufio.Reader
	asJSON bool
	yes    bool
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"item":     {"item add|edit|rm|adjust|list|log ...", runItem},
	"txn":      {"txn add|edit|rm|list ...", runTxn},
	"settle":   {"settle sales|purchases <entry-id> [-amount N]", runSettle},
	"journal":  {"journal sales|purchases|receipts|disbursements|general|receivables|payables [-period YYYY-MM]", runJournal},
	"summary":  {"summary [-period YYYY-MM]", runSummary},
	"monthly":  {"monthly", runMonthly},
	"audit":    {"audit [-item id]", runAudit},
	"export":   {"export [-period YYYY-MM] [-o file.xlsx]", runExport},
	"settings": {"settings [-name N] [-theme light|dark] [-accent C] [-currency S]", runSettings},
}

func main() {
	log.SetFlags(0)
	// Diagnostics go to stderr; stdout carries command output.
	obs.Logger().SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	var (
		dbPath = flag.String("db", cfg.DBPath, "Path to the SQLite books file")
		asJSON = flag.Bool("json", false, "Print results as JSON")
		yes    = flag.Bool("yes", false, "Answer yes to confirmation prompts")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		log.Printf("unknown command %q", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open books: %v", err)
	}
	defer store.Close()
	if _, err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	books, err := ledger.Open(ctx, store, ledger.WithLowStockThreshold(cfg.LowStock))
	if err != nil {
		log.Fatalf("load books: %v", err)
	}

	a := &app{books: books, out: os.Stdout, in: bufio.NewReader(os.Stdin), asJSON: *asJSON, yes: *yes}
	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			log.Printf("usage: tally %s", cmd.usage)
			os.Exit(2)
		}
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tally [-db path] [-json] [-yes] <command> [args]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

// confirm retries op with confirmed=true once the user accepts the prompt.
func (a *app) confirm(op func(confirmed bool) error) error {
	err := op(false)
	var gate *ledger.ConfirmationRequiredError
	if !errors.As(err, &gate) {
		return err
	}
	if !a.yes {
		fmt.Fprintf(os.Stderr, "%s. Continue? [y/N] ", gate)
		line, _ := a.in.ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			return errors.New("cancelled")
		}
	}
	return op(true)
}
