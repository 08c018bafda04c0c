// Package mocks provides in-memory implementations of the store and
// pipeline interfaces for testing. The stores mimic database semantics
// closely enough for workflow tests: values are copied on the way in and
// out, ids are assigned sequentially, and the one-extension constraint is
// enforced.
package mocks
