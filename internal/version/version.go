// Package version reports the build version of cua.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const gitTimeout = 2 * time.Second

var (
	// Set via -ldflags "-X" at build time.
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once

	// runGit is replaced in tests.
	runGit = git

	readBuildInfo = debug.ReadBuildInfo
)

// resolve fills unset values from the embedded build info, then from git
// for development builds run inside a checkout.
func resolve() {
	once.Do(func() {
		if info, ok := readBuildInfo(); ok {
			if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				Version = strings.TrimPrefix(info.Main.Version, "v")
			}
			for _, s := range info.Settings {
				switch {
				case s.Key == "vcs.revision" && Commit == "":
					Commit = s.Value[:min(len(s.Value), 12)]
				case s.Key == "vcs.time" && Date == "":
					Date = s.Value[:min(len(s.Value), len("2006-01-02"))]
				}
			}
		}

		if Version == "" {
			Version = "dev"
			if tag, err := runGit("describe", "--tags", "--abbrev=0"); err == nil && tag != "" {
				Version = strings.TrimPrefix(tag, "v")
			}
		}
		if Commit == "" {
			Commit = "unknown"
			if rev, err := runGit("describe", "--always", "--dirty"); err == nil && rev != "" {
				Commit = rev
			}
		}
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
	})
}

// Reset clears resolved values so they are computed again.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func git(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// GetVersion returns the release version, "dev" for untagged builds.
func GetVersion() string {
	resolve()
	return Version
}

// GetCommit returns the source commit.
func GetCommit() string {
	resolve()
	return Commit
}

// GetDate returns the build date.
func GetDate() string {
	resolve()
	return Date
}

// Info returns a one-line version string.
func Info() string {
	resolve()
	return fmt.Sprintf("cua %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
