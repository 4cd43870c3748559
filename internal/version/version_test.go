package version

import (
	"errors"
	"runtime/debug"
	"strings"
	"testing"
)

func stub(t *testing.T, info *debug.BuildInfo, git map[string]string) {
	t.Helper()
	origGit, origInfo := runGit, readBuildInfo
	t.Cleanup(func() {
		runGit, readBuildInfo = origGit, origInfo
		Reset()
	})

	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
	runGit = func(args ...string) (string, error) {
		out, ok := git[strings.Join(args, " ")]
		if !ok {
			return "", errors.New("not a git repository")
		}
		return out, nil
	}
	Reset()
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		info       *debug.BuildInfo
		git        map[string]string
		wantVer    string
		wantCommit string
		wantDate   string
	}{
		{
			name: "build info",
			info: &debug.BuildInfo{
				Main: debug.Module{Version: "v1.2.3"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef0123"},
					{Key: "vcs.time", Value: "2024-06-01T10:00:00Z"},
				},
			},
			wantVer:    "1.2.3",
			wantCommit: "0123456789ab",
			wantDate:   "2024-06-01",
		},
		{
			name: "devel build in checkout",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			git: map[string]string{
				"describe --tags --abbrev=0": "v1.0.0",
				"describe --always --dirty":  "abc1234-dirty",
			},
			wantVer:    "1.0.0",
			wantCommit: "abc1234-dirty",
		},
		{
			name:       "no git",
			wantVer:    "dev",
			wantCommit: "unknown",
		},
		{
			name:       "untagged checkout",
			git:        map[string]string{"describe --always --dirty": "abc1234"},
			wantVer:    "dev",
			wantCommit: "abc1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, tt.info, tt.git)

			if got := GetVersion(); got != tt.wantVer {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVer)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if tt.wantDate != "" && GetDate() != tt.wantDate {
				t.Errorf("GetDate() = %q, want %q", GetDate(), tt.wantDate)
			}
			if GetDate() == "" {
				t.Error("GetDate() is empty")
			}
			if info := Info(); !strings.HasPrefix(info, "cua "+tt.wantVer+" (commit: "+tt.wantCommit) {
				t.Errorf("Info() = %q", info)
			}
		})
	}
}

func TestLdflagsWin(t *testing.T) {
	stub(t, &debug.BuildInfo{Main: debug.Module{Version: "v9.9.9"}}, nil)
	Version, Commit = "2.0.0", "feedbee"

	if got := GetVersion(); got != "2.0.0" {
		t.Errorf("GetVersion() = %q, want ldflags value", got)
	}
	if got := GetCommit(); got != "feedbee" {
		t.Errorf("GetCommit() = %q, want ldflags value", got)
	}
}
