package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

// startTime is recorded when the process starts
var startTime = time.Now().UTC()

// Info is reported by /api/status
type Info struct {
	Version    string    `json:"version"`
	BuildTime  string    `json:"buildTime,omitempty"`
	CommitHash string    `json:"commitHash,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	Uptime     string    `json:"uptime"`
}

// Get returns the build metadata and uptime
func Get() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
		StartedAt:  startTime,
		Uptime:     time.Since(startTime).Truncate(time.Second).String(),
	}
}
