// Package orchestrate implements the Orchestrator (C7): the two-pass scan
// driver that ties the extractor, store, RPC client, and symbol mapper
// together.
package orchestrate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cmmlang/cx/internal/cmm"
	"github.com/cmmlang/cx/internal/extract"
	"github.com/cmmlang/cx/internal/lsp"
	"github.com/cmmlang/cx/internal/store"
	"github.com/cmmlang/cx/internal/symbols"
)

// Stats aggregates the counters the CLI reports after a scan.
type Stats struct {
	FilesScanned int
	ParseErrors  int
	Resolved     int
	Failed       int
	External     int
}

// Orchestrator drives Pass 1 (syntactic ingest) and Pass 2 (semantic
// resolution) over a set of files against one Store.
type Orchestrator struct {
	db      store.Port
	lsp     *lsp.Client
	mapper  *symbols.Mapper
	workDir string
}

// New builds an Orchestrator over anything satisfying store.Port. lspCommand
// is the language server's argv used for the availability probe and, if
// available, Pass 2; an empty slice disables Pass 2 entirely.
func New(db store.Port, lspCommand []string, workDir string) *Orchestrator {
	return &Orchestrator{
		db:      db,
		lsp:     lsp.New(lspCommand, workDir),
		mapper:  symbols.New(db),
		workDir: workDir,
	}
}

// Scan runs Pass 1 over every file, then Pass 2 if the configured language
// server is available. ctx cancellation is checked at file granularity in
// both passes.
func (o *Orchestrator) Scan(ctx context.Context, files []string) (Stats, error) {
	var stats Stats

	allSites, err := o.passOne(ctx, files, &stats)
	if err != nil {
		return stats, err
	}

	if err := o.passTwo(ctx, allSites, &stats); err != nil {
		return stats, err
	}

	return stats, nil
}

type fileSites struct {
	path  string
	sites []cmm.CallSite
}

// passOne extracts and upserts every file, accumulating call sites for
// Pass 2. A parse error on one file increments ParseErrors and is logged;
// it does not stop the scan.
func (o *Orchestrator) passOne(ctx context.Context, files []string, stats *Stats) ([]fileSites, error) {
	var all []fileSites

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		model, sites, err := extract.ExtractFile(path)
		if err != nil {
			stats.ParseErrors++
			log.Printf("orchestrate: skipping %s: %v", path, err)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			stats.ParseErrors++
			log.Printf("orchestrate: rereading %s for hashing: %v", path, err)
			continue
		}

		if err := o.db.UpsertFile(path, content, model); err != nil {
			return all, fmt.Errorf("scan: upserting %s: %w", path, err)
		}

		stats.FilesScanned++
		all = append(all, fileSites{path: path, sites: sites})
	}

	return all, nil
}

// passTwo starts the language server and resolves every call site emitted
// in Pass 1 into a verified relation. If the server is unavailable, Pass 2
// is skipped entirely and the scan's syntactic-only relations stand.
func (o *Orchestrator) passTwo(ctx context.Context, all []fileSites, stats *Stats) error {
	started, err := o.lsp.Start()
	if err != nil {
		return fmt.Errorf("scan: starting language server: %w", err)
	}
	if !started {
		log.Print("orchestrate: language server unavailable, skipping semantic resolution")
		return nil
	}
	defer o.lsp.Shutdown()

	for _, fs := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		uri := "file://" + toAbs(o.workDir, fs.path)

		for _, site := range fs.sites {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.resolveCallSite(uri, fs.path, site, stats); err != nil {
				return fmt.Errorf("scan: resolving call in %s: %w", fs.path, err)
			}
		}
	}

	return nil
}

func (o *Orchestrator) resolveCallSite(fileURI, filePath string, site cmm.CallSite, stats *Stats) error {
	fromID, err := o.mapper.FindEnclosingEntity(filePath, site.Line)
	if err != nil {
		return err
	}
	if fromID == "" {
		return nil // module-level call, no owning entity to attach a relation to
	}

	loc, err := o.lsp.Definition(fileURI, site.Line, site.Character)
	if err != nil {
		return err
	}
	if loc == nil {
		stats.Failed++
		return nil
	}

	toID, err := o.mapper.FindByLocation(loc.URI, loc.Line)
	if err != nil {
		return err
	}
	if toID == "" {
		stats.External++
		return nil
	}

	if err := o.db.SaveVerifiedRelation(fromID, toID, cmm.RelCalls); err != nil {
		return err
	}
	stats.Resolved++

	hover, err := o.lsp.Hover(loc.URI, loc.Line, loc.Character)
	if err != nil {
		return err
	}
	if hover != nil && hover.Signature != "" {
		if err := o.db.SaveTypeHint(toID, hover.Signature); err != nil {
			return err
		}
	}

	return nil
}

func toAbs(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
