package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set through -ldflags "-X main.version=..." at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// VersionInfo is the JSON shape of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	})
}

func currentVersion() VersionInfo {
	v := VersionInfo{
		Version:   version,
		Commit:    commit,
		Built:     date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	// go install builds carry no ldflags; fall back to the module version.
	if v.Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			v.Version = bi.Main.Version
		}
	}
	return v
}

func runVersion() error {
	v := currentVersion()
	if jsonOut {
		return printJSON(v)
	}
	printInfo("buddyctl %s\n", v.Version)
	printInfo("  commit: %s\n", v.Commit)
	printInfo("  built:  %s\n", v.Built)
	printInfo("  go:     %s (%s)\n", v.GoVersion, v.Platform)
	return nil
}
