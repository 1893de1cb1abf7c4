package version

// Version is the version of the hal tooling. It is set at build time with
// -ldflags "-X github.com/hashicorp-forge/hal/internal/version.Version=...".
var Version = "0.1.0-dev"
