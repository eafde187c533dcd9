// Package importer orchestrates a statement import end to end: decode,
// format detection, parsing, fingerprinting, deduplication, persistence.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/guiplbarros-ai/extrato/internal/dedup"
	"github.com/guiplbarros-ai/extrato/internal/detect"
	"github.com/guiplbarros-ai/extrato/internal/domain"
	"github.com/guiplbarros-ai/extrato/internal/fingerprint"
	"github.com/guiplbarros-ai/extrato/internal/normalize"
	"github.com/guiplbarros-ai/extrato/internal/parser"
	"github.com/guiplbarros-ai/extrato/internal/registry"
	"github.com/guiplbarros-ai/extrato/internal/store"
	"github.com/guiplbarros-ai/extrato/internal/template"
)

// Options configures one import call.
type Options struct {
	// AccountID is the destination account. Required: fingerprints are
	// scoped per account.
	AccountID string

	// Filename is the source file name, used for format sniffing only.
	Filename string

	// Format forces a parser by name ("csv", "ofx") instead of sniffing.
	Format string

	// Charset is the declared input encoding; empty means auto-detect.
	Charset string

	// Template is a named bank dialect; nil means infer from the header.
	Template *template.Template

	// Mapping is an explicit resolved column mapping, overriding Template.
	Mapping *template.ColumnMapping

	Description   normalize.Options
	StripPrefixes bool
	Workers       int

	// DryRun runs the full pipeline but skips persistence.
	DryRun bool
}

// Importer wires the parser registry to a store.
type Importer struct {
	registry *registry.Registry
	store    store.Store
	logger   *slog.Logger
}

// New creates an importer. A nil logger falls back to slog.Default().
func New(reg *registry.Registry, st store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{registry: reg, store: st, logger: logger}
}

// Import runs the pipeline on one statement file.
//
// Per-row failures are carried inside the result; the returned error is
// reserved for fatal conditions (unreadable input, no parser, no header row,
// store failures) where no rows were processed at all.
func (i *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*domain.ImportResult, error) {
	if opts.AccountID == "" {
		return nil, fmt.Errorf("account ID is required")
	}
	start := time.Now()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	text, err := detect.DecodeText(raw, opts.Charset)
	if err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	p, err := i.findParser(opts, raw)
	if err != nil {
		return nil, err
	}

	log := i.logger.With("account", opts.AccountID, "parser", p.Name(), "file", opts.Filename)
	log.Debug("parsing statement", "bytes", len(raw), "dry_run", opts.DryRun)

	batch, err := p.Parse(ctx, strings.NewReader(text), parser.Options{
		Template:      opts.Template,
		Mapping:       opts.Mapping,
		Description:   opts.Description,
		StripPrefixes: opts.StripPrefixes,
		Workers:       opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", opts.Filename, err)
	}

	canonical := make([]domain.CanonicalTransaction, 0, len(batch.Transactions))
	for _, txn := range batch.Transactions {
		c, err := domain.NewCanonical(txn, fingerprint.ForTransaction(txn))
		if err != nil {
			return nil, fmt.Errorf("failed to canonicalize line %d: %w", txn.SourceLine, err)
		}
		canonical = append(canonical, c)
	}

	existing, err := i.store.ExistingFingerprints(ctx, opts.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing fingerprints: %w", err)
	}

	rec := dedup.Reconcile(canonical, existing)

	if !opts.DryRun {
		if err := i.store.Persist(ctx, opts.AccountID, rec.Accepted); err != nil {
			return nil, fmt.Errorf("failed to persist batch: %w", err)
		}
	}

	result := &domain.ImportResult{
		Total:                batch.Total(),
		Accepted:             rec.Accepted,
		IntraBatchDuplicates: len(rec.IntraBatch),
		StoreDuplicates:      len(rec.AgainstStore),
		Errors:               batch.Errors,
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent import result: %w", err)
	}

	log.Info("import finished",
		"total", result.Total,
		"accepted", len(result.Accepted),
		"intra_batch_duplicates", result.IntraBatchDuplicates,
		"store_duplicates", result.StoreDuplicates,
		"errors", len(result.Errors),
		"duration", time.Since(start),
	)
	return result, nil
}

func (i *Importer) findParser(opts Options, raw []byte) (parser.Parser, error) {
	if opts.Format != "" {
		return i.registry.ByName(opts.Format)
	}
	header := raw
	if len(header) > registry.HeaderSize {
		header = header[:registry.HeaderSize]
	}
	return i.registry.FindParser(opts.Filename, header)
}
