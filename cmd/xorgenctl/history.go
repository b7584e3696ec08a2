package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/RowanDark/xorgen/internal/history"
)

func runHistory(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "history subcommand required")
		return 2
	}
	switch args[0] {
	case "list", "show", "delete":
	default:
		fmt.Fprintf(os.Stderr, "unknown history subcommand: %s\n", args[0])
		return 2
	}

	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	logger, err := openAuditLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit log: %v\n", err)
		return 1
	}
	defer logger.Close()
	store, err := history.Open(cfg.HistoryPath(), logger.WithComponent("history"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		return 1
	}
	defer store.Close()

	switch args[0] {
	case "list":
		return runHistoryList(store, args[1:])
	case "show":
		return runHistoryShow(store, args[1:])
	default:
		return runHistoryDelete(store, args[1:])
	}
}

func runHistoryList(store *history.Store, args []string) int {
	fs := flag.NewFlagSet("history list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", history.DefaultListLimit, "maximum runs to show")
	query := fs.String("query", "", "filter runs, e.g. 'source:cli complete:false text:attack'")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	var (
		records []history.Record
		err     error
	)
	if *query != "" {
		records, err = store.Search(context.Background(), *query, *limit)
	} else {
		records, err = store.List(context.Background(), *limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "list history: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tKEY\tRESOLVED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Source, rec.Key, rec.Resolved, rec.KeyLength)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runHistoryShow(store *history.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "history show requires exactly one run id")
		return 2
	}
	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "show history: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		fmt.Fprintf(os.Stderr, "encode run: %v\n", err)
		return 1
	}
	return 0
}

func runHistoryDelete(store *history.Store, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "history delete requires exactly one run id")
		return 2
	}
	if err := store.Delete(context.Background(), args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "delete history: %v\n", err)
		return 1
	}
	return 0
}
