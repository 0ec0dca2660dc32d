// Package types defines the shared vocabulary of the MLD plugin SDK: the
// error taxonomy, the data models exchanged with the host platform, plugin
// metadata and health types, and the KeyValueStore contract used by
// plugins running without a platform.
package types
