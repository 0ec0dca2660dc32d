// Package platform defines the capability surface a host platform hands to
// plugins at initialization. A plugin that receives no Context runs in
// standalone mode.
//
// Each repository accessor returns the repository and true, or false when
// the backing store is disabled in this deployment. A false result is a
// configuration condition, not a transient failure; callers must not retry.
package platform

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Context is the set of platform services available to an integrated
// plugin.
type Context interface {
	// IsAuthenticated reports the platform's authentication state. In
	// development mode it may always be false.
	IsAuthenticated() bool

	// RequireUser wraps next so that requests without an authenticated
	// user are rejected with 401. The user is available to next through
	// UserFromContext.
	RequireUser(next http.Handler) http.Handler

	// OptionalUser wraps next, attaching the user when one is
	// authenticated and passing the request through either way.
	OptionalUser(next http.Handler) http.Handler

	UserRepository() (repository.UserRepository, bool)

	// ExperimentRepository returns a read-only view for analysis plugins
	// and full access for experiment design plugins.
	ExperimentRepository() (repository.ExperimentRepository, bool)

	PluginDataRepository() (repository.PluginDataRepository, bool)
	MetadataTemplateRepository() (repository.MetadataTemplateRepository, bool)
	AnalysisArtifactRepository() (repository.AnalysisArtifactRepository, bool)
	PluginRoleRepository() (repository.PluginRoleRepository, bool)

	// Config returns the platform settings. Common top-level keys are
	// auth, database, features and plugins.
	Config() types.PlatformConfig

	// SharedSession runs fn in a transaction on the platform database.
	SharedSession(ctx context.Context, fn func(tx *sql.Tx) error) error
}
