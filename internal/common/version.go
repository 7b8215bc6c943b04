package common

// Set via ldflags at build time
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string {
	return Version
}

func GetBuild() string {
	return Build
}

// GetFullVersion returns version, build and commit in one string
func GetFullVersion() string {
	v := Version
	if Build != "unknown" {
		v += "-" + Build
	}
	if GitCommit != "unknown" {
		v += " (" + GitCommit + ")"
	}
	return v
}
