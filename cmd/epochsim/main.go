// Package main runs simulated epochs through the validator.
//
// It seeds a genesis pool with one output per key, then for every epoch generates a
// random mix of valid, conflicting, overspending, badly signed and negative output
// transactions, hands them to HandleTxs and logs what was accepted.
//
// Usage:
//
//	epochsim --keys 16 --epochs 10 --txs 200 --policy highest_fee --store sqlitememory:///sim
//	epochsim --tracing --report report.json
package main

import (
	"context"
	"net/url"
	"os"

	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/services/validator"
	"github.com/bsv-blockchain/txhandler/settings"
	"github.com/bsv-blockchain/txhandler/stores/utxo/memory"
	"github.com/bsv-blockchain/txhandler/tracing"
	"github.com/bsv-blockchain/txhandler/ulogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	app := &cli.App{
		Name:  "epochsim",
		Usage: "Run random transaction epochs through the validator",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "keys", Value: 8, Usage: "number of key pairs owning the genesis pool"},
			&cli.IntFlag{Name: "epochs", Value: 5, Usage: "number of epochs to run"},
			&cli.IntFlag{Name: "txs", Value: 100, Usage: "candidate transactions per epoch"},
			&cli.StringFlag{Name: "policy", Usage: "first_seen or highest_fee, defaults to the validator_policy setting"},
			&cli.StringFlag{Name: "store", Usage: "utxo store URL, defaults to the utxostore setting"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.StringFlag{Name: "loglevel", Usage: "log level, defaults to the logLevel setting"},
			&cli.StringFlag{Name: "report", Usage: "write a JSON report of every epoch to this file"},
			&cli.BoolFlag{Name: "tracing", Usage: "export spans to the tracing_collector_url collector"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		ulogger.New("epochsim").Fatalf("%v", err)
	}
}

type simConfig struct {
	keys   int
	epochs int
	txs    int
	seed   int64
}

func run(c *cli.Context) error {
	tSettings := settings.NewSettings()

	if store := c.String("store"); store != "" {
		storeURL, err := url.Parse(store)
		if err != nil {
			return errors.NewConfigurationError("invalid store URL %q", store, err)
		}

		tSettings.UtxoStore.UtxoStore = storeURL
	}

	if policy := c.String("policy"); policy != "" {
		tSettings.Validator.Policy = policy
	}

	logLevel := tSettings.LogLevel
	if level := c.String("loglevel"); level != "" {
		logLevel = level
	}

	logger := ulogger.New("epochsim", ulogger.WithLevel(logLevel))

	if c.Bool("tracing") {
		tSettings.Tracing.Enabled = true
	}

	shutdownTracer, err := tracing.InitTracer(c.Context, "epochsim", tSettings)
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warnf("[epochsim] failed to flush spans: %v", err)
		}
	}()

	cfg := simConfig{
		keys:   c.Int("keys"),
		epochs: c.Int("epochs"),
		txs:    c.Int("txs"),
		seed:   c.Int64("seed"),
	}

	summaries, err := simulate(c.Context, logger, tSettings, cfg)
	if err != nil {
		return err
	}

	if report := c.String("report"); report != "" {
		if err = writeReport(report, summaries); err != nil {
			return err
		}

		logger.Infof("[epochsim] report written to %s", report)
	}

	return nil
}

func writeReport(path string, summaries []epochSummary) error {
	b, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode report", err)
	}

	if err = os.WriteFile(path, b, 0600); err != nil {
		return errors.NewProcessingError("failed to write report %s", path, err)
	}

	return nil
}

type epochSummary struct {
	Epoch      uint64         `json:"epoch"`
	Candidates int            `json:"candidates"`
	Accepted   int            `json:"accepted"`
	Rejected   int            `json:"rejected"`
	Utxos      int            `json:"utxos"`
	Generated  map[string]int `json:"generated"`
	Reasons    map[string]int `json:"reasons"`
}

func simulate(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, cfg simConfig) ([]epochSummary, error) {
	if cfg.keys <= 0 {
		return nil, errors.NewInvalidArgumentError("keys must be positive, got %d", cfg.keys)
	}

	gen := newGenerator(cfg.seed, cfg.keys)

	genesis := memory.New(logger)
	if err := gen.genesis(ctx, genesis); err != nil {
		return nil, err
	}

	v, err := validator.New(ctx, logger, tSettings, genesis)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := v.Close(ctx); err != nil {
			logger.Errorf("[epochsim] failed to close utxo store: %v", err)
		}
	}()

	summaries := make([]epochSummary, 0, cfg.epochs)

	for i := 0; i < cfg.epochs; i++ {
		txs, kinds, err := gen.epoch(ctx, v.UtxoStore(), cfg.txs)
		if err != nil {
			return summaries, err
		}

		epochCtx, span, endSpan := tracing.StartTracing(ctx, "epochsim:epoch")
		span.SetIntTag("generated", len(txs))

		result, err := v.HandleTxsWithResult(epochCtx, txs)
		endSpan()

		if err != nil {
			return summaries, err
		}

		count, err := v.UtxoStore().Count(ctx)
		if err != nil {
			return summaries, err
		}

		summary := epochSummary{
			Epoch:      result.Epoch,
			Candidates: len(txs),
			Accepted:   len(result.Accepted),
			Rejected:   len(result.Rejected),
			Utxos:      count,
			Generated:  make(map[string]int, len(kinds)),
			Reasons:    make(map[string]int),
		}

		for kind, n := range kinds {
			summary.Generated[kind.String()] = n
		}

		for _, rejection := range result.Rejected {
			summary.Reasons[validator.RejectReason(rejection.Reason)]++
		}

		summaries = append(summaries, summary)

		logger.Infof("[epochsim] epoch %d: generated %v, accepted %d, rejected %d %v, pool %d utxos",
			summary.Epoch, summary.Generated, summary.Accepted, summary.Rejected, summary.Reasons, summary.Utxos)
	}

	return summaries, nil
}
