// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command mimedb builds mimedb artifacts from JSON datasets and queries them.
//
//	mimedb build [--verbose] -o OUT DATASET...
//	mimedb lookup [--db ARTIFACT] KEY...
//	mimedb sniff [--db ARTIFACT] FILE...
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/bpowers/mimedb"
)

const usage = `usage: mimedb <command> [flags] [args]

commands:
  build    merge JSON datasets, in order, into an artifact
  lookup   print the entries for extensions and MIME types
  sniff    identify files by their leading bytes
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "mimedb: %s\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "build":
		return runBuild(rest, stdout, stderr)
	case "lookup":
		return runLookup(rest, stdout, stderr)
	case "sniff":
		return runSniff(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runBuild(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	out := fs.StringP("output", "o", "", "path to write the artifact to (required)")
	verbose := fs.BoolP("verbose", "v", false, "log build progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" || fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: mimedb build [--verbose] -o OUT DATASET...")
		return errUsage
	}

	logger := newLogger(stderr, *verbose)
	b := mimedb.NewBuilder(mimedb.WithBuilderLogger(logger))
	for _, path := range fs.Args() {
		ds, err := mimedb.LoadDataset(path)
		if err != nil {
			return err
		}
		logger.Debug("loaded dataset", "path", path, "records", ds.Len())
		b.Add(ds)
	}
	db, err := b.Finalize()
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := db.Save(*out); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	fmt.Fprintf(stdout, "wrote %s: %d mime types, %d extensions, fingerprint %016x\n",
		*out, db.MimeCount(), db.ExtCount(), db.Fingerprint())
	return nil
}

// openDB returns the artifact at path, or the embedded database if path is
// empty.
func openDB(path string) (*mimedb.DB, error) {
	if path == "" {
		return mimedb.Default(), nil
	}
	return mimedb.Open(path)
}

func runLookup(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("lookup", stderr)
	dbPath := fs.String("db", "", "artifact to query instead of the embedded database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: mimedb lookup [--db ARTIFACT] KEY...")
		return errUsage
	}

	db, err := openDB(*dbPath)
	if err != nil {
		return err
	}

	missing := 0
	for _, key := range fs.Args() {
		if strings.Contains(key, "/") {
			e, ok := db.LookupMime(key)
			if !ok {
				fmt.Fprintf(stdout, "%s\tnot found\n", key)
				missing++
				continue
			}
			fmt.Fprintf(stdout, "%s\tcompressible=%t\textensions=%s\n",
				key, e.Compressible, strings.Join(e.Extensions, ","))
			continue
		}

		ext := strings.TrimPrefix(key, ".")
		e, ok := db.LookupExt(ext)
		if !ok {
			fmt.Fprintf(stdout, "%s\tnot found\n", key)
			missing++
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", key, strings.Join(e.Types, ","))
	}

	if missing > 0 {
		return fmt.Errorf("%d of %d keys not found", missing, fs.NArg())
	}
	return nil
}

func runSniff(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("sniff", stderr)
	dbPath := fs.String("db", "", "artifact to query instead of the embedded database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: mimedb sniff [--db ARTIFACT] FILE...")
		return errUsage
	}

	db, err := openDB(*dbPath)
	if err != nil {
		return err
	}

	for _, path := range fs.Args() {
		m, ok, err := sniffFile(db, path)
		if err != nil {
			return err
		}
		switch {
		case !ok:
			fmt.Fprintf(stdout, "%s\tunknown\n", path)
		case m.Entry == nil:
			fmt.Fprintf(stdout, "%s\t%s\n", path, m.MIME)
		default:
			fmt.Fprintf(stdout, "%s\t%s\tcompressible=%t\n", path, m.MIME, m.Entry.Compressible)
		}
	}
	return nil
}

func sniffFile(db *mimedb.DB, path string) (mimedb.Match, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return mimedb.Match{}, false, err
	}
	defer func() {
		_ = f.Close()
	}()
	m, ok, err := db.FromReader(f)
	if err != nil {
		return mimedb.Match{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return m, ok, nil
}
