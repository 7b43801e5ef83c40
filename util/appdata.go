// Copyright (c) 2013-2014 Conformal Systems LLC.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppDataDir returns an operating system specific directory to be used
// for storing application data for an application, following the same
// convention btcsuite-lineage daemons use: XDG on Unix, %LOCALAPPDATA%
// on Windows, ~/Library/Application Support on macOS.
func AppDataDir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]
	appNameLower := strings.ToLower(appName[:1]) + appName[1:]

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming {
			if v := os.Getenv("APPDATA"); v != "" {
				appData = v
			}
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
		return filepath.Join(homeDir, appNameUpper)

	case "darwin":
		if homeDir == "." {
			return filepath.Join(".", appNameUpper)
		}
		return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)

	case "plan9":
		return filepath.Join(homeDir, appNameLower)

	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			if homeDir == "." {
				return filepath.Join(".", "."+appNameLower)
			}
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
		return filepath.Join(dataHome, appNameLower)
	}
}
