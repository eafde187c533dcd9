package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/guiplbarros-ai/extrato/internal/importer"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
	"github.com/guiplbarros-ai/extrato/internal/registry"
	"github.com/guiplbarros-ai/extrato/internal/store"
	"github.com/guiplbarros-ai/extrato/internal/template"
	"github.com/guiplbarros-ai/extrato/internal/ui"
)

const (
	version = "0.1.0"
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	inputFile = flag.String("input", "", "Statement file to import (required)")
	accountID = flag.String("account", "", "Destination account ID (required)")
	dbPath    = flag.String("db", "extrato.db", "SQLite database path")
	dryRun    = flag.Bool("dry-run", false, "Run the pipeline without persisting")
	verbose   = flag.Bool("verbose", false, "Show detailed import logs")

	// Dialect flags
	templateName  = flag.String("template", "", "Bank template name (see -list-templates)")
	templatesFile = flag.String("templates-file", "", "Load bank templates from this YAML file instead of the built-ins")
	formatFlag    = flag.String("format", "", "Force parser: csv, ofx (default: sniff)")
	charset       = flag.String("charset", "", "Input charset: utf-8, windows-1252, iso-8859-1 (default: auto)")
	listTemplates = flag.Bool("list-templates", false, "List available bank templates")

	// Normalization flags
	uppercase     = flag.Bool("uppercase", false, "Upper-case descriptions")
	stripAccents  = flag.Bool("strip-accents", false, "Strip accents from descriptions")
	stripPrefixes = flag.Bool("strip-prefixes", false, "Strip known bank prefixes (PIX, TED, COMPRA CARTAO, ...) from descriptions")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `extrato - Bank statement importer with deduplication

Usage:
  extrato [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Import a CSV export
  extrato -input extrato.csv -account corrente

  # Import an OFX statement into a specific database
  extrato -input cartao.ofx -account cartao -db casa.db

  # Dry run with a bank template
  extrato -input extrato.csv -account corrente -template itau -dry-run

  # Latin-1 export with forced format
  extrato -input extrato.txt -account corrente -format csv -charset iso-8859-1

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("extrato version %s\n", version)
		os.Exit(0)
	}

	if *listTemplates {
		if err := printTemplates(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *inputFile == "" || *accountID == "" {
		fmt.Fprintf(os.Stderr, "Error: -input and -account flags are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(*verbose)

	tmpl, err := resolveTemplate()
	if err != nil {
		return err
	}

	st, err := store.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(*inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	ui.Header("Importing Bank Statement")
	ui.Step(1, 2, fmt.Sprintf("Parsing %s", filepath.Base(*inputFile)))

	imp := importer.New(registry.New(), st, logger)
	result, err := imp.Import(ctx, f, importer.Options{
		AccountID: *accountID,
		Filename:  *inputFile,
		Format:    *formatFlag,
		Charset:   *charset,
		Template:  tmpl,
		Description: normalize.Options{
			Uppercase:    *uppercase,
			StripAccents: *stripAccents,
		},
		StripPrefixes: *stripPrefixes,
		DryRun:        *dryRun,
	})
	if err != nil {
		return err
	}

	ui.Step(2, 2, "Reconciling against account history")
	ui.Success(result.Summary())
	if *dryRun {
		ui.Warning("Dry run: nothing was persisted")
	}

	if result.IntraBatchDuplicates > 0 {
		ui.Info(fmt.Sprintf("%d duplicate rows inside the file itself", result.IntraBatchDuplicates))
	}
	if result.StoreDuplicates > 0 {
		ui.Info(fmt.Sprintf("%d rows already imported for account %s", result.StoreDuplicates, *accountID))
	}

	if len(result.Errors) > 0 {
		ui.Warning(fmt.Sprintf("%d rows could not be parsed:", len(result.Errors)))
		for _, perr := range result.Errors {
			ui.Error(perr.Error())
		}
	}
	return nil
}

// resolveTemplate loads the template set and picks the requested one. No
// -template flag means header inference.
func resolveTemplate() (*template.Template, error) {
	if *templateName == "" && *templatesFile == "" {
		return nil, nil
	}

	set, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	if *templateName == "" {
		return nil, nil
	}

	tmpl, ok := set.Get(*templateName)
	if !ok {
		return nil, fmt.Errorf("unknown template %q (available: %s)",
			*templateName, strings.Join(set.Names(), ", "))
	}
	return tmpl, nil
}

func loadTemplates() (*template.Set, error) {
	if *templatesFile != "" {
		return template.LoadFromFile(*templatesFile)
	}
	return template.LoadEmbedded()
}

func printTemplates() error {
	set, err := loadTemplates()
	if err != nil {
		return err
	}
	names := set.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = os.Stderr
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
