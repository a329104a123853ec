// Package wasmlib routes native entry points through wazero.
//
// Open adapts an instantiated guest module so its exports resolve as native
// entry points. Export goes the other way: it publishes the entry points of
// any native.Library as wazero host functions behind a small generated
// guest module that re-exports them, so registries can be driven through
// the same call path a WebAssembly build of the native shim uses.
//
// All entry points take and return i64. Host functions report native
// failures by panicking, which wazero surfaces as an error from Call.
package wasmlib
