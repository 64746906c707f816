package version

var (
	// Version is the current library version, stamped into checkpoints
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the version and commit in a single token suitable for
// provenance columns.
func String() string {
	return Version + "+" + GitSHA
}
