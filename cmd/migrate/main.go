package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"tallybook.org/internal/config"
	"tallybook.org/internal/migrate"
	"tallybook.org/internal/store/sqlite"
)

func main() {
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	var (
		dbPath    = flag.String("db", cfg.DBPath, "Path to the SQLite books file")
		seedsPath = flag.String("seeds", "", "Directory of .sql seed files (optional)")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [-db path] [-seeds dir] [up|down|seed|status|pending]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	db, err := store.DB()
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var seeds fs.FS
	if *seedsPath != "" {
		seeds = os.DirFS(*seedsPath)
	}
	mgr := migrate.NewManager(db, sqlite.Migrations(), seeds)

	var names []string
	switch flag.Arg(0) {
	case "up":
		names, err = mgr.Up(ctx)
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if name != "" {
			names = []string{name}
		}
	case "seed":
		if seeds == nil {
			log.Fatal("seed: provide -seeds")
		}
		names, err = mgr.Seed(ctx)
	case "status":
		names, err = mgr.Status(ctx)
	case "pending":
		names, err = mgr.Pending(ctx)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	for _, n := range names {
		fmt.Println(n)
	}
	if len(names) == 0 {
		fmt.Println("nothing to do")
	}
}
