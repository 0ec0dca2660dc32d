package plugin

import (
	"net/http"
	"path"
	"strings"
)

// FrontendProvider is implemented by plugins that ship a built frontend.
type FrontendProvider interface {
	// FrontendDir returns the directory holding the built assets.
	FrontendDir() string
}

// VersionConstrained is implemented by plugins that only run on a range of
// platform versions.
type VersionConstrained interface {
	CompatiblePlatformVersions() (minVersion, maxVersion string)
}

// FrontendConfig returns the configuration the platform frontend needs to
// mount the plugin's UI.
func FrontendConfig(p Plugin) map[string]any {
	m := p.Metadata()
	return map[string]any{
		"name":         m.Name,
		"version":      m.Version,
		"routePrefix":  m.RoutesPrefix,
		"analysisType": m.AnalysisType,
	}
}

// Mount registers p's routes on mux under its routes prefix and returns the
// registered patterns. Each handler sees paths relative to its mount point.
func Mount(mux *http.ServeMux, p Plugin) []string {
	prefix := p.Metadata().RoutesPrefix
	var patterns []string
	for _, r := range p.Routers() {
		base := strings.TrimSuffix(path.Join("/", prefix, r.Path), "/")
		pattern := base + "/"
		mux.Handle(pattern, http.StripPrefix(base, r.Handler))
		patterns = append(patterns, pattern)
	}
	return patterns
}
