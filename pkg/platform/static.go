package platform

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Authenticator resolves the user of a request. It returns nil without an
// error when the request carries no credentials.
type Authenticator func(r *http.Request) (*types.User, error)

// Sessioner runs a function in a database transaction. types.KeyValueStore
// satisfies it.
type Sessioner interface {
	Session(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Static is a Context assembled from fixed collaborators. Nil fields are
// reported as unavailable. It is meant for tests, embedding hosts and
// standalone harnesses.
type Static struct {
	// Category selects the experiment repository view.
	Category types.PluginType

	Authenticated bool
	Authenticate  Authenticator

	Users       repository.UserRepository
	Experiments repository.ExperimentRepository
	PluginData  repository.PluginDataRepository
	Templates   repository.MetadataTemplateRepository
	Artifacts   repository.AnalysisArtifactRepository
	Roles       repository.PluginRoleRepository

	Settings types.PlatformConfig
	Sessions Sessioner
	Logger   *slog.Logger
}

var _ Context = (*Static)(nil)

// IsAuthenticated returns s.Authenticated.
func (s *Static) IsAuthenticated() bool { return s.Authenticated }

// RequireUser rejects requests that Authenticate does not resolve to a user.
func (s *Static) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			s.logger().Warn("authentication failed", "path", r.URL.Path, "error", err)
		}
		if u == nil {
			writeError(w, http.StatusUnauthorized,
				types.NewPermissionError("authentication required", "authenticated", nil))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// OptionalUser attaches the user when Authenticate resolves one.
func (s *Static) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(r)
		if err != nil {
			s.logger().Debug("optional authentication failed", "path", r.URL.Path, "error", err)
		}
		if u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Static) authenticate(r *http.Request) (*types.User, error) {
	if s.Authenticate == nil {
		return nil, nil
	}
	return s.Authenticate(r)
}

// UserRepository returns s.Users, reporting false when it is nil.
func (s *Static) UserRepository() (repository.UserRepository, bool) {
	return s.Users, s.Users != nil
}

// ExperimentRepository applies repository.ExperimentsFor with s.Category.
func (s *Static) ExperimentRepository() (repository.ExperimentRepository, bool) {
	if s.Experiments == nil {
		return nil, false
	}
	return repository.ExperimentsFor(s.Experiments, s.Category), true
}

// PluginDataRepository returns s.PluginData, reporting false when it is nil.
func (s *Static) PluginDataRepository() (repository.PluginDataRepository, bool) {
	return s.PluginData, s.PluginData != nil
}

// MetadataTemplateRepository returns s.Templates, reporting false when it is nil.
func (s *Static) MetadataTemplateRepository() (repository.MetadataTemplateRepository, bool) {
	return s.Templates, s.Templates != nil
}

// AnalysisArtifactRepository returns s.Artifacts, reporting false when it is nil.
func (s *Static) AnalysisArtifactRepository() (repository.AnalysisArtifactRepository, bool) {
	return s.Artifacts, s.Artifacts != nil
}

// PluginRoleRepository returns s.Roles, reporting false when it is nil.
func (s *Static) PluginRoleRepository() (repository.PluginRoleRepository, bool) {
	return s.Roles, s.Roles != nil
}

// Config returns a copy of s.Settings, never nil.
func (s *Static) Config() types.PlatformConfig {
	if s.Settings == nil {
		return types.PlatformConfig{}
	}
	return maps.Clone(s.Settings)
}

// SharedSession delegates to s.Sessions, or fails with a ConfigurationError
// when no database is attached.
func (s *Static) SharedSession(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.Sessions == nil {
		return types.NewConfigurationError("shared database session not available", "database", nil)
	}
	return s.Sessions.Session(ctx, fn)
}

func (s *Static) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func writeError(w http.ResponseWriter, status int, err *types.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
