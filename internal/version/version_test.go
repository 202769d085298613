/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package version

import "testing"

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "1.2.3"}, "1.2.3"},
		{"short revision ignored", Info{Version: "1.2.3", Revision: "abc"}, "1.2.3"},
		{"revision", Info{Version: "1.2.3", Revision: "0123456789abcdef"}, "1.2.3 (0123456)"},
		{"dirty", Info{Version: "1.2.3", Revision: "0123456789abcdef", Modified: true}, "1.2.3 (0123456-dirty)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetUsesVersionVariable(t *testing.T) {
	if got := Get().Version; got != Version {
		t.Errorf("Get().Version = %q, want %q", got, Version)
	}
}
