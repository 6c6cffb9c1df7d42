// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"gitlab.com/dyadchain/dyadd/config"
	"gitlab.com/dyadchain/dyadd/corelog"
	"gitlab.com/dyadchain/dyadd/database"
	"gitlab.com/dyadchain/dyadd/network/rpc"
	"gitlab.com/dyadchain/dyadd/node/blockchain"
	"gitlab.com/dyadchain/dyadd/node/mining/cpuminer"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	app := &cli.App{
		Name:   "dyadd",
		Usage:  "dual-algorithm proof of work chain daemon",
		Flags:  initFlags(),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}
}

func initFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML configuration file",
		},
		&cli.StringFlag{
			Name:  "net",
			Usage: "network to run on, mainnet or regtest",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "directory the block index database lives in",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "minimum log severity, trace through fatal",
		},
		&cli.StringFlag{
			Name:  "rpc-listen",
			Usage: "interface:port to serve JSON-RPC on",
		},
		&cli.StringFlag{
			Name:  "rpc-user",
			Usage: "JSON-RPC basic auth username",
		},
		&cli.StringFlag{
			Name:  "rpc-pass",
			Usage: "JSON-RPC basic auth password",
		},
		&cli.BoolFlag{
			Name:  "mine",
			Usage: "run the continuous CPU miner",
		},
		&cli.StringFlag{
			Name:  "mining-addr",
			Usage: "address generated blocks commit their subsidy to",
		},
		&cli.StringFlag{
			Name:  "pow-algo",
			Usage: "default mining algorithm, e.g. scrypt or sha256d-mm",
		},
	}
}

// loadConfig reads the config file and lays the command line flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigFilename
		if dataDir := c.String("data-dir"); dataDir != "" {
			path = filepath.Join(dataDir, config.DefaultConfigFilename)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if c.IsSet("net") {
		cfg.Net = c.String("net")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("rpc-listen") {
		cfg.RPC.ListenAddr = c.String("rpc-listen")
	}
	if c.IsSet("rpc-user") {
		cfg.RPC.User = c.String("rpc-user")
	}
	if c.IsSet("rpc-pass") {
		cfg.RPC.Password = c.String("rpc-pass")
	}
	if c.IsSet("mine") {
		cfg.Miner.Enable = c.Bool("mine")
	}
	if c.IsSet("mining-addr") {
		cfg.Miner.MiningAddr = c.String("mining-addr")
	}
	if c.IsSet("pow-algo") {
		cfg.Miner.PowAlgo = c.String("pow-algo")
	}
	return cfg, nil
}

// parseMiningAlgo resolves an algorithm name of the config.  Merge-minable
// algorithms default to merge-mined proofs; the "-mm" suffix spells that
// out explicitly.
func parseMiningAlgo(name string) (pow.PowAlgo, error) {
	if name == "" {
		return pow.AlgoScrypt, nil
	}

	explicitMM := strings.HasSuffix(name, "-mm")
	algo, err := pow.AlgoFromString(strings.TrimSuffix(name, "-mm"))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid pow algo %q", name)
	}

	desc, _ := pow.Describe(algo)
	if explicitMM && !desc.MergeMinable {
		return 0, errors.Errorf("pow algo %q cannot be merge-mined", name)
	}
	if desc.MergeMinable {
		algo |= pow.FlagMergeMined
	}
	return algo, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	params, err := cfg.NetParams()
	if err != nil {
		return err
	}
	logLevel, err := cfg.ParseLogLevel()
	if err != nil {
		return err
	}
	defaultAlgo, err := parseMiningAlgo(cfg.Miner.PowAlgo)
	if err != nil {
		return err
	}

	logger := corelog.New("node", logLevel, cfg.LogConfig)
	blockchain.UseLogger(logger.With().Str("unit", "chain").Logger())

	logger.Info().Msgf("Starting dyadd on %s", params.Name)

	store, err := database.OpenBadgerStore(cfg.DBPath(params))
	if err != nil {
		return errors.Wrap(err, "cannot open block index database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("cannot close block index database")
		}
	}()

	chain, err := blockchain.New(&blockchain.Config{
		DB:          store,
		ChainParams: params,
	})
	if err != nil {
		return errors.Wrap(err, "cannot initialize chain")
	}

	best := chain.BestSnapshot()
	logger.Info().Msgf("Chain state loaded (height %d, hash %s)", best.Height, best.Hash)

	miner := cpuminer.New(&cpuminer.Config{
		ChainParams:                params,
		BestSnapshot:               chain.BestSnapshot,
		CalcNextRequiredDifficulty: chain.CalcNextRequiredDifficulty,
		ProcessBlock:               chain.ProcessBlock,
		MiningAddr:                 cfg.Miner.MiningAddr,
		DefaultAlgo:                defaultAlgo,
	}, logger.With().Str("unit", "cpuminer").Logger())

	if cfg.Miner.Enable {
		if !params.PowParams.GenerateSupported {
			return errors.Errorf("CPU mining is not supported on %s", params.Name)
		}
		miner.Start()
		defer miner.Stop()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcLog := logger.With().Str("unit", "rpc").Logger()
	server := rpc.NewServer(cfg.RPC, rpc.NewNodeRPC(chain, miner, rpcLog).Handlers(), rpcLog)
	return server.Run(ctx)
}
