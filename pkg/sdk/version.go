// Package sdk carries the version of the MLD plugin SDK.
package sdk

// Version is the SDK release. Plugins report it to the host so the
// platform can reject incompatible builds.
const Version = "0.3.2"

// ModulePath is the Go module path of the SDK.
const ModulePath = "github.com/mld-platform/mld-sdk"
