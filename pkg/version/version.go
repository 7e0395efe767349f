package version

// version is overridden at build time through -ldflags
var version string = "v0.1.0"

// Current returns the current authattach version
func Current() string { return version }
