package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()

	// ServiceName identifies which of the two binaries (edge or scoring)
	// reports this version info; each main sets it once at startup.
	ServiceName = "unknown"
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Service:   ServiceName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("Service: %s, Version: %s, Commit: %s, Built: %s, Go: %s, Platform: %s",
		i.Service, i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}
