// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signal implements the standard btcsuite-lineage shutdown
// channel: a single-fire interrupt listener that is safe to read from
// multiple goroutines and idempotent across repeated SIGINT/SIGTERM.
package signal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	interruptChannel chan struct{}
	once             sync.Once
)

// InterruptListener starts (once) a goroutine listening for SIGINT and
// SIGTERM and returns a channel that is closed the first time one
// arrives. A second signal forces an immediate os.Exit, matching the
// behavior operators expect from "it's really not shutting down, kill it
// again".
func InterruptListener() <-chan struct{} {
	once.Do(func() {
		interruptChannel = make(chan struct{})
		osSignals := make(chan os.Signal, 1)
		signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-osSignals
			close(interruptChannel)
			<-osSignals
			os.Exit(1)
		}()
	})
	return interruptChannel
}
