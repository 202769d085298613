/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version reports the build's version and VCS revision.
package version

import (
	"runtime/debug"
	"sync"
)

// Version is set at build time via ldflags:
//
//	-X github.com/friendsincode/airtime/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build info, read once from the binary.
func Get() Info {
	once.Do(func() {
		info = Info{Version: Version}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Revision = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	})
	return info
}

// String formats the version with a short revision when one is known.
func (i Info) String() string {
	s := i.Version
	if len(i.Revision) >= 7 {
		s += " (" + i.Revision[:7]
		if i.Modified {
			s += "-dirty"
		}
		s += ")"
	}
	return s
}
