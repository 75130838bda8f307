// Command minesim runs a discrete-event simulation of a blockchain
// mining network: miners mine and relay blocks over a configured peer
// topology, selecting transactions from bounded per-miner mempools
// according to an honest or malicious policy. Grounded on
// LarryRuane-minesim's main() (flag-parse, seed, build, run, report) and
// on original_source/Simulation.cpp::prepareOutput for the output file
// naming scheme.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tem12/minesim/internal/config"
	"github.com/Tem12/minesim/internal/metrics"
	"github.com/Tem12/minesim/internal/simerr"
	"github.com/Tem12/minesim/internal/simulation"
	"github.com/Tem12/minesim/internal/sinks"
)

const (
	outputDir        = "outputs"
	maxRunID         = 1000
	runIDDigits      = 4
	defaultFeeLambda = 150.0
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cli, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	cfgFile, err := os.Open(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer cfgFile.Close()

	topoFile, err := config.ParseFile(cfgFile)
	if err != nil {
		return err
	}
	if err := topoFile.Validate(); err != nil {
		return err
	}

	feeLambda := defaultFeeLambda
	metricsAddr := cli.MetricsAddr
	jitterFraction := -1.0 // sentinel meaning "use randsrc's built-in default"
	if cli.DefaultsPath != "" {
		d, err := config.LoadDefaults(cli.DefaultsPath)
		if err != nil {
			return err
		}
		if d.FeeLambda > 0 {
			feeLambda = d.FeeLambda
		}
		if d.JitterFraction > 0 {
			jitterFraction = d.JitterFraction
		}
		if metricsAddr == "" {
			metricsAddr = d.MetricsAddr
		}
	}
	if jitterFraction < 0 {
		jitterFraction = 0.001
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	paths, err := reserveOutputFiles(cli.ConfigPath)
	if err != nil {
		return err
	}

	progressFile, dataFile, metadataFile, err := openRequiredOutputs(paths)
	if err != nil {
		return err
	}
	defer progressFile.Close()
	defer dataFile.Close()
	defer metadataFile.Close()

	var mempoolFile *os.File
	if cli.MPPrintData {
		mempoolFile, err = os.Create(paths.mempool)
		if err != nil {
			return fmt.Errorf("%w: creating mempool output: %v", simerr.ErrOutputIO, err)
		}
		defer mempoolFile.Close()
	}

	sk, err := sinks.New(progressFile, dataFile, mempoolFile, metadataFile, cli.MPPrintData, log)
	if err != nil {
		return err
	}

	mt := metrics.New()
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mt.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	engineCfg := simulation.EngineConfig{
		Seed:      cli.Seed,
		Blocks:    uint32(cli.Blocks),
		BlockSize: uint32(cli.BlockSize),
		Lambda:    float64(cli.Lambda),

		MinerSpecs: topoFile.Miners,
		Biconnects: topoFile.Biconnects,

		Generator: simulation.GeneratorConfig{
			FeeLambda:          feeLambda,
			MinCount:           int(cli.MinTxGenCount),
			MaxCount:           int(cli.MaxTxGenCount),
			MinWait:            int(cli.MinTxGenTime),
			MaxWait:            int(cli.MaxTxGenTime),
			HonestRandomRemove: cli.HonestRandomRemove,
			Capacity:           int(cli.MPCapacity),
		},
		InitTxCount:    int(cli.InitTxCount),
		JitterFraction: jitterFraction,
	}

	runID := uuid.NewString()

	engine := simulation.New(engineCfg, sk, mt)
	ctx := engine.Context()

	if err := sk.WriteMetadata(sinks.Metadata{
		Name:            topoFile.Description,
		RunID:           runID,
		ConfigPath:      cli.ConfigPath,
		Blocks:          cli.Blocks,
		Seed:            cli.Seed,
		BlockSize:       cli.BlockSize,
		MempoolCapacity: cli.MPCapacity,
		MaliciousMiners: ctx.MaliciousMinerCount(),
		HonestMiners:    ctx.HonestMinerCount(),
		MaliciousPower:  ctx.MaliciousPower(),
		HonestPower:     ctx.HonestPower(),
	}); err != nil {
		return fmt.Errorf("%w: writing metadata: %v", simerr.ErrOutputIO, err)
	}

	log.Info().
		Str("run_id", runID).
		Int("miners", len(topoFile.Miners)).
		Uint("blocks", cli.Blocks).
		Msg("starting simulation")

	if err := engine.Run(); err != nil {
		if errors.Is(err, simerr.ErrOutOfTransactions) {
			log.Error().Err(err).Msg("simulation aborted: mempool exhausted")
		}
		return err
	}

	log.Info().Str("run_id", runID).Msg("simulation complete")
	return nil
}

type outputPaths struct {
	progress string
	data     string
	metadata string
	mempool  string
}

// reserveOutputFiles probes outputs/progress_<config>_<NNNN>.out for the
// first unused run-id suffix, mirroring
// original_source/Simulation.cpp::prepareOutput, then derives the
// sibling data/metadata/mempool filenames from the same suffix.
func reserveOutputFiles(configPath string) (outputPaths, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return outputPaths{}, fmt.Errorf("%w: creating %s: %v", simerr.ErrOutputIO, outputDir, err)
	}

	configFilename := filepath.Base(configPath)

	for i := 0; i <= maxRunID; i++ {
		suffix := fmt.Sprintf("%0*d", runIDDigits, i)
		progressPath := filepath.Join(outputDir, fmt.Sprintf("progress_%s_%s.out", configFilename, suffix))
		if _, err := os.Stat(progressPath); os.IsNotExist(err) {
			return outputPaths{
				progress: progressPath,
				data:     filepath.Join(outputDir, fmt.Sprintf("data_%s_%s.csv", configFilename, suffix)),
				metadata: filepath.Join(outputDir, fmt.Sprintf("metadata_%s_%s.data", configFilename, suffix)),
				mempool:  filepath.Join(outputDir, fmt.Sprintf("mempool_%s_%s.csv", configFilename, suffix)),
			}, nil
		}
	}
	return outputPaths{}, fmt.Errorf("%w: maximum number of output files for config %q exceeded (%d)", simerr.ErrOutputIO, configFilename, maxRunID)
}

func openRequiredOutputs(paths outputPaths) (progress, data, metadata *os.File, err error) {
	progress, err = os.Create(paths.progress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: creating progress output: %v", simerr.ErrOutputIO, err)
	}
	data, err = os.Create(paths.data)
	if err != nil {
		progress.Close()
		return nil, nil, nil, fmt.Errorf("%w: creating data output: %v", simerr.ErrOutputIO, err)
	}
	metadata, err = os.Create(paths.metadata)
	if err != nil {
		progress.Close()
		data.Close()
		return nil, nil, nil, fmt.Errorf("%w: creating metadata output: %v", simerr.ErrOutputIO, err)
	}
	return progress, data, metadata, nil
}
