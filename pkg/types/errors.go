// Error taxonomy shared by plugins and the host platform.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"unicode/utf8"
)

// Machine-readable error codes, as they appear in the "error" field of the
// wire shape.
const (
	CodePlugin        = "PLUGIN_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodePermission    = "PERMISSION_DENIED"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeRepository    = "REPOSITORY_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeLifecycle     = "LIFECYCLE_ERROR"
)

// Error kinds. A *Error matches its own kind and every ancestor kind under
// errors.Is: a not-found error is also ErrRepository and ErrPlugin.
var (
	ErrPlugin        = errors.New("plugin error")
	ErrValidation    = errors.New("validation error")
	ErrPermission    = errors.New("permission denied")
	ErrConfiguration = errors.New("configuration error")
	ErrRepository    = errors.New("repository error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrLifecycle     = errors.New("lifecycle error")
)

// maxDetailValueLen bounds the size of a validation value copied into details.
const maxDetailValueLen = 100

type kind int

const (
	kindPlugin kind = iota
	kindValidation
	kindPermission
	kindConfiguration
	kindRepository
	kindNotFound
	kindConflict
	kindLifecycle
)

var kindSentinels = map[kind]error{
	kindPlugin:        ErrPlugin,
	kindValidation:    ErrValidation,
	kindPermission:    ErrPermission,
	kindConfiguration: ErrConfiguration,
	kindRepository:    ErrRepository,
	kindNotFound:      ErrNotFound,
	kindConflict:      ErrConflict,
	kindLifecycle:     ErrLifecycle,
}

var kindParents = map[kind]kind{
	kindValidation:    kindPlugin,
	kindPermission:    kindPlugin,
	kindConfiguration: kindPlugin,
	kindRepository:    kindPlugin,
	kindNotFound:      kindRepository,
	kindConflict:      kindRepository,
	kindLifecycle:     kindPlugin,
}

// Error is the root error type for everything that crosses the plugin
// boundary. Code and Details are what the host serializes; the named fields
// hold the kind-specific context that was folded into Details.
type Error struct {
	Code    string
	Message string
	Details map[string]any

	Field              string
	Value              any
	RequiredPermission string
	ConfigKey          string
	Operation          string
	Entity             string
	EntityID           string
	ConflictField      string
	Phase              string
	PluginName         string

	kind  kind
	cause error
}

// NewError returns a generic plugin error. An empty code becomes PLUGIN_ERROR.
func NewError(message, code string, details map[string]any) *Error {
	if code == "" {
		code = CodePlugin
	}
	return &Error{Code: code, Message: message, Details: cloneDetails(details), kind: kindPlugin}
}

// NewValidationError reports invalid input. A non-nil value is stored in
// Details in its string form, truncated to 100 characters plus "...".
func NewValidationError(message, field string, value any, details map[string]any) *Error {
	d := cloneDetails(details)
	if field != "" {
		d["field"] = field
	}
	if value != nil {
		d["value"] = truncate(fmt.Sprint(value), maxDetailValueLen)
	}
	return &Error{
		Code: CodeValidation, Message: message, Details: d,
		Field: field, Value: value, kind: kindValidation,
	}
}

// NewPermissionError reports denied access.
func NewPermissionError(message, requiredPermission string, details map[string]any) *Error {
	d := cloneDetails(details)
	if requiredPermission != "" {
		d["required_permission"] = requiredPermission
	}
	return &Error{
		Code: CodePermission, Message: message, Details: d,
		RequiredPermission: requiredPermission, kind: kindPermission,
	}
}

// NewConfigurationError reports missing or invalid plugin configuration.
func NewConfigurationError(message, configKey string, details map[string]any) *Error {
	d := cloneDetails(details)
	if configKey != "" {
		d["config_key"] = configKey
	}
	return &Error{
		Code: CodeConfiguration, Message: message, Details: d,
		ConfigKey: configKey, kind: kindConfiguration,
	}
}

// NewRepositoryError reports a persistence failure.
func NewRepositoryError(message, operation, entity string, details map[string]any) *Error {
	return newRepositoryError(CodeRepository, kindRepository, message, operation, entity, cloneDetails(details))
}

// NewNotFoundError reports a missing resource. The operation is always "get".
func NewNotFoundError(message, entity, entityID string, details map[string]any) *Error {
	d := cloneDetails(details)
	if entityID != "" {
		d["entity_id"] = entityID
	}
	e := newRepositoryError(CodeNotFound, kindNotFound, message, "get", entity, d)
	e.EntityID = entityID
	return e
}

// NewConflictError reports a duplicate or state conflict. The operation is
// always "create_or_update".
func NewConflictError(message, entity, conflictField string, details map[string]any) *Error {
	d := cloneDetails(details)
	if conflictField != "" {
		d["conflict_field"] = conflictField
	}
	e := newRepositoryError(CodeConflict, kindConflict, message, "create_or_update", entity, d)
	e.ConflictField = conflictField
	return e
}

// NewLifecycleError reports an initialization, shutdown or health-check failure.
func NewLifecycleError(message, phase, pluginName string, details map[string]any) *Error {
	d := cloneDetails(details)
	if phase != "" {
		d["phase"] = phase
	}
	if pluginName != "" {
		d["plugin_name"] = pluginName
	}
	return &Error{
		Code: CodeLifecycle, Message: message, Details: d,
		Phase: phase, PluginName: pluginName, kind: kindLifecycle,
	}
}

func newRepositoryError(code string, k kind, message, operation, entity string, d map[string]any) *Error {
	if operation != "" {
		d["operation"] = operation
	}
	if entity != "" {
		d["entity"] = entity
	}
	return &Error{
		Code: code, Message: message, Details: d,
		Operation: operation, Entity: entity, kind: k,
	}
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the cause attached with WithCause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel of this error's kind or of one
// of its ancestors.
func (e *Error) Is(target error) bool {
	k := e.kind
	for {
		if kindSentinels[k] == target {
			return true
		}
		parent, ok := kindParents[k]
		if !ok {
			return false
		}
		k = parent
	}
}

// WithCause attaches the underlying error and returns e.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// ToMap converts the error to its wire shape. The details key is omitted
// when there are no details.
func (e *Error) ToMap() map[string]any {
	out := map[string]any{
		"error":   e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		out["details"] = maps.Clone(e.Details)
	}
	return out
}

// MarshalJSON encodes the wire shape.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// AsError returns the *Error in err's chain, if there is one.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func cloneDetails(details map[string]any) map[string]any {
	if details == nil {
		return make(map[string]any)
	}
	return maps.Clone(details)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
