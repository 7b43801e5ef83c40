// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logger wires carversync's subsystem loggers onto two rotated
// on-disk log files (all levels, and errors and above) plus stdout, the
// way every btcsuite-lineage daemon
// does it. Add a new subsystem here and to subsystemLoggers when a new
// package needs its own tag.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/5G-Cash/bulwark-explorer/logs"
	"github.com/jrick/logrotate/rotator"
)

// SubsystemTags enumerates every tag a carversync package may log under.
var SubsystemTags = struct {
	CRVR, // carver package: AddressCache/Builder/Applier/Unwinder/Confirmer
	SYNC, // sync.Coordinator
	RPCC, // rpcclient
	STOR, // store
	LOCK, // lockmgr
	ADRP, // addressparser
	HLTH, // healthserver
	CNFG string // config
}{
	CRVR: "CRVR",
	SYNC: "SYNC",
	RPCC: "RPCC",
	STOR: "STOR",
	LOCK: "LOCK",
	ADRP: "ADRP",
	HLTH: "HLTH",
	CNFG: "CNFG",
}

// logWriter fans every write out to stdout and the rotator, once
// InitLogRotators has run; before that it silently discards, matching
// the teacher's own bootstrapping behavior (loggers may be minted at
// package-init time, before main() knows the log directory).
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	if initiated {
		os.Stdout.Write(p)
		_, err := LogRotator.Write(p)
		return len(p), err
	}
	return len(p), nil
}

type errLogWriter struct{}

func (errLogWriter) Write(p []byte) (int, error) {
	if initiated {
		os.Stdout.Write(p)
		_, err := ErrLogRotator.Write(p)
		return len(p), err
	}
	return len(p), nil
}

var (
	backendLog = logs.NewBackend(
		logs.NewAllLevelsBackendWriter(logWriter{}),
		logs.NewErrorBackendWriter(errLogWriter{}),
	)

	// LogRotator and ErrLogRotator are the two on-disk outputs; they
	// must be closed on shutdown and are nil until InitLogRotators
	// runs.
	LogRotator    *rotator.Rotator
	ErrLogRotator *rotator.Rotator

	initiated bool

	subsystemLoggers = map[string]*logs.Logger{
		SubsystemTags.CRVR: backendLog.Logger(SubsystemTags.CRVR),
		SubsystemTags.SYNC: backendLog.Logger(SubsystemTags.SYNC),
		SubsystemTags.RPCC: backendLog.Logger(SubsystemTags.RPCC),
		SubsystemTags.STOR: backendLog.Logger(SubsystemTags.STOR),
		SubsystemTags.LOCK: backendLog.Logger(SubsystemTags.LOCK),
		SubsystemTags.ADRP: backendLog.Logger(SubsystemTags.ADRP),
		SubsystemTags.HLTH: backendLog.Logger(SubsystemTags.HLTH),
		SubsystemTags.CNFG: backendLog.Logger(SubsystemTags.CNFG),
	}
)

// Logger returns the logger for the given subsystem tag, creating none
// on the fly: an unrecognized tag is a programmer error and panics, the
// same way an unregistered subsystem would silently vanish from
// SetLogLevels otherwise.
func Logger(subsystemTag string) *logs.Logger {
	logger, ok := subsystemLoggers[subsystemTag]
	if !ok {
		panic(fmt.Sprintf("logger: unregistered subsystem %q", subsystemTag))
	}
	return logger
}

// InitLogRotators must be called once, early in main(), before any
// logger produced by Logger is used in anger. It creates logDir if
// necessary.
func InitLogRotators(logFile, errLogFile string) {
	initiated = true
	LogRotator = initLogRotator(logFile)
	ErrLogRotator = initLogRotator(errLogFile)
}

func initLogRotator(logFile string) *rotator.Rotator {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
			os.Exit(1)
		}
	}
	const maxRolls = 10
	r, err := rotator.New(logFile, 10*1024*1024, false, maxRolls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	return r
}

// SetLogLevel sets the level for a single subsystem; unknown tags are
// ignored.
func SetLogLevel(subsystemTag, levelString string) {
	logger, ok := subsystemLoggers[subsystemTag]
	if !ok {
		return
	}
	level, _ := logs.LevelFromString(levelString)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem to levelString.
func SetLogLevels(levelString string) {
	for tag := range subsystemLoggers {
		SetLogLevel(tag, levelString)
	}
}

// SupportedSubsystems returns the sorted list of registered subsystem
// tags, for --help / --debuglevel usage text.
func SupportedSubsystems() []string {
	tags := make([]string, 0, len(subsystemLoggers))
	for tag := range subsystemLoggers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Close flushes and closes both rotators. Safe to call even if
// InitLogRotators was never called.
func Close() {
	if !initiated {
		return
	}
	_ = LogRotator.Close()
	_ = ErrLogRotator.Close()
}
