// Package concepts holds module-wide build metadata.
package concepts

// Version is the release version, overridden at link time with
// -ldflags "-X github.com/mesh-intelligence/concepts/pkg/concepts.Version=...".
var Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/concepts"
