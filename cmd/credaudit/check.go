package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credreview/internal/adapter/driven/fallbackapi"
	"github.com/ericfisherdev/credreview/internal/adapter/driven/liveness"
	"github.com/ericfisherdev/credreview/internal/adapter/driven/rangeapi"
	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/config"
	"github.com/ericfisherdev/credreview/internal/csvcodec"
	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

type checkOptions struct {
	all            bool
	rows           string
	sortKey        string
	probe          bool
	probeDirect    bool
	format         string
	exportPath     string
	deleteBreached bool
	yes            bool
	noFallback     bool
	fallbackURL    string
	rangeURL       string
}

func newCheckCmd(root *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <file.csv>",
		Short: "Check the passwords in a CSV export against the breach corpus",
		Long: `Imports a password CSV (profile,site,username,password,usage, header
optional) and checks each selected password with k-anonymity range lookups. Only the
first five characters of each SHA-1 digest leave this machine. Unknown
outcomes are retried through the fallback server unless --no-fallback is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(stderr, root.verbose)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if opts.fallbackURL != "" {
				cfg.FallbackURL = opts.fallbackURL
			}
			if opts.rangeURL != "" {
				cfg.RangeAPIURL = opts.rangeURL
			}

			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			return runCheck(ctx, cfg, opts, raw, newAdapters(cfg, opts, logger), stdout, logger)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.all, "all", false, "check every record (default when --rows is not given)")
	f.StringVar(&opts.rows, "rows", "", "1-based rows to check, e.g. 1,3,7-9")
	f.StringVar(&opts.sortKey, "sort", string(model.SortByBreach), "report order: breach, usage or profile")
	f.BoolVar(&opts.probe, "probe", false, "probe each site for liveness after the breach check")
	f.BoolVar(&opts.probeDirect, "probe-direct", false, "probe sites from this machine instead of through the server")
	f.StringVarP(&opts.format, "format", "o", formatTable, "output format: table, json or yaml")
	f.StringVar(&opts.exportPath, "export", "", "write the reviewed records to this CSV path")
	f.BoolVar(&opts.deleteBreached, "delete-breached", false, "drop breached records before export")
	f.BoolVar(&opts.yes, "yes", false, "confirm destructive operations")
	f.BoolVar(&opts.noFallback, "no-fallback", false, "never send full passwords to the fallback server")
	f.StringVar(&opts.fallbackURL, "fallback-url", "", "fallback server base URL (overrides CREDREVIEW_FALLBACK_URL)")
	f.StringVar(&opts.rangeURL, "range-url", "", "range API base URL (overrides CREDREVIEW_RANGE_API_URL)")

	return cmd
}

// adapters bundles the outbound ports a check run talks to.
type adapters struct {
	lookup   driven.RangeLookup
	fallback driven.BreachFallback
	prober   driven.SiteProber
}

func newAdapters(cfg *config.Config, opts *checkOptions, logger *slog.Logger) adapters {
	a := adapters{lookup: rangeapi.NewClient(cfg.RangeAPIURL, logger)}
	if !opts.noFallback {
		a.fallback = fallbackapi.NewClient(cfg.FallbackURL)
	}
	if opts.probeDirect {
		a.prober = liveness.NewProber(cfg.ProbeTimeout, logger)
	} else {
		a.prober = liveness.NewRemoteClient(&http.Client{Timeout: cfg.ProbeTimeout + liveness.DefaultTimeout}, cfg.FallbackURL, logger)
	}
	return a
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func runCheck(
	ctx context.Context,
	cfg *config.Config,
	opts *checkOptions,
	raw string,
	ports adapters,
	out io.Writer,
	logger *slog.Logger,
) error {
	if opts.all && opts.rows != "" {
		return errors.New("--all and --rows are mutually exclusive")
	}
	if opts.deleteBreached && !opts.yes {
		return errors.New("refusing to delete breached records without --yes")
	}
	sortKey, err := parseSortKey(opts.sortKey)
	if err != nil {
		return err
	}
	if !slices.Contains(outputFormats, opts.format) {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	imported, dialect := csvcodec.Import(raw)
	if len(imported) == 0 {
		return errors.New("no credential rows found in input")
	}
	records := application.NewRecordCollection(imported...)

	ids := records.IDs()
	if opts.rows != "" {
		if ids, err = selectRows(ids, opts.rows); err != nil {
			return err
		}
	}
	logger.Info("imported records", "total", records.Len(), "selected", len(ids), "columns", dialect.ColumnCount)

	checker := application.NewBreachChecker(ports.lookup, cfg.LookupConcurrency, cfg.MaxBatch, logger)
	verifier := application.NewVerifyService(records, checker, ports.fallback, logger)

	verified, err := verifier.Verify(ctx, ids)
	if err != nil {
		return err
	}
	logger.Info("verification finished",
		"checked", verified.Checked,
		"breached", verified.Breached,
		"unknown", verified.Unknown,
		"fallback", verified.UsedFallback,
		"duration", verified.Duration,
	)

	var probed *application.ProbeReport
	if opts.probe {
		probes := application.NewProbeService(ports.prober, records, nil, application.DefaultProbeConcurrency, logger)
		release := stopOnInterrupt(probes.Stop)
		pr, err := probes.ProbeBatch(ctx, ids)
		release()
		if err != nil {
			return fmt.Errorf("probing sites: %w", err)
		}
		if pr.Stopped {
			logger.Warn("probing stopped before every site was checked")
		}
		probed = &pr
	}

	deleted := 0
	if opts.deleteBreached {
		breached := records.Filter(func(r model.Record) bool { return r.Breach.Breached() })
		deleted = records.Delete(recordIDs(breached)...)
		logger.Info("deleted breached records", "count", deleted)
	}

	if opts.exportPath != "" {
		if err := writeExport(opts.exportPath, records.List(), &dialect, cfg.ExportPartBytes, logger); err != nil {
			return err
		}
	}

	records.Sort(sortKey)
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	report := newReport(records.Filter(func(r model.Record) bool { return selected[r.ID] }), verified, probed, deleted)
	return writeReport(out, opts.format, report)
}

// stopOnInterrupt calls stop on the first SIGINT until release is called.
func stopOnInterrupt(stop func()) (release func()) {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sig, os.Interrupt)

	go func() {
		select {
		case <-sig:
			stop()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sig)
		close(done)
	}
}

func parseSortKey(s string) (model.SortKey, error) {
	switch key := model.SortKey(s); key {
	case model.SortByBreach, model.SortByUsage, model.SortByProfile:
		return key, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

func recordIDs(records []model.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
