package obs

import (
	"runtime/debug"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_build_info",
			Help: "Binary version, VCS revision and the books schema version it reads.",
		},
		[]string{"version", "commit", "schema_version"},
	)
)

// InitBuildInfo publishes tally_build_info. An empty or "dev" commit falls
// back to the revision stamped by the Go toolchain, when there is one.
func InitBuildInfo(version, commit string, schemaVersion int) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	if commit == "" || commit == "dev" {
		commit = vcsRevision(commit)
	}
	buildInfo.WithLabelValues(version, commit, strconv.Itoa(schemaVersion)).Set(1)
}

func vcsRevision(fallback string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fallback
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return fallback
}
