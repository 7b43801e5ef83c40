// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// carversyncd is the movement engine's daemon entrypoint: it parses
// configuration, wires the carver/sync/store/rpcclient packages
// together, runs one sync pass up to the node's tip, and exits
// (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/config"
	"github.com/5G-Cash/bulwark-explorer/healthserver"
	"github.com/5G-Cash/bulwark-explorer/lockmgr"
	"github.com/5G-Cash/bulwark-explorer/logger"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
	"github.com/5G-Cash/bulwark-explorer/signal"
	"github.com/5G-Cash/bulwark-explorer/store"
	syncpkg "github.com/5G-Cash/bulwark-explorer/sync"
	"github.com/5G-Cash/bulwark-explorer/util/panics"
)

func main() {
	os.Exit(mainImpl())
}

func mainImpl() int {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse configuration: %s\n", err)
		return 1
	}

	logger.InitLogRotators(cfg.LogFile(), cfg.ErrLogFile())
	defer logger.Close()
	logger.SetLogLevels(cfg.Debug)

	log := logger.Logger(logger.SubsystemTags.SYNC)
	spawn := panics.GoroutineWrapperFunc(log)
	interrupt := signal.InterruptListener()

	locker := lockmgr.New(cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	spawn(func() {
		<-interrupt
		log.Infof("received interrupt, shutting down")
		cancel()
	})

	st, err := store.Connect(ctx, cfg.StoreURI, cfg.StoreDatabase)
	if err != nil {
		log.Criticalf("connecting to store: %s", err)
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warnf("closing store: %s", err)
		}
	}()

	if err := st.EnsureIndexes(ctx); err != nil {
		log.Criticalf("ensuring store indexes: %s", err)
		return 1
	}

	node := rpcclient.New(rpcclient.ConnConfig{
		Host:    cfg.RPCEndpoint,
		User:    cfg.RPCUser,
		Pass:    cfg.RPCPassword,
		Timeout: cfg.RPCTimeout,
	})

	reporter := healthserver.NewReporter()
	health := healthserver.New(cfg.HealthListen, reporter)
	health.Start()
	defer func() {
		if err := health.Shutdown(context.Background()); err != nil {
			log.Warnf("shutting down health server: %s", err)
		}
	}()

	coordinator := syncpkg.New(st, node, locker, syncpkg.Config{
		BlockConfirmations:      int64(cfg.BlockConfirmations),
		AddressCacheLimit:       cfg.AddressCacheLimit,
		Params:                  addressparser.MainNetParams,
		DevInjectRandomRollback: cfg.DevInjectRandomRollback,
		Reporter:                reporter,
	})

	if err := coordinator.Run(ctx, cfg.Positional.UndoHeight, cfg.Positional.ForceRPCHeight); err != nil {
		log.Criticalf("sync failed: %s", err)
		return 1
	}
	log.Infof("exiting cleanly")
	return 0
}
