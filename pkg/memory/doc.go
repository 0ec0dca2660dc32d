// Package memory provides in-memory implementations of every repository
// interface. They back plugin tests and platform-less development setups;
// all of them are safe for concurrent use and copy values in and out so
// callers never share state with the store.
package memory
