// Package signing manages the debug signing identity and signs archives with it.
//
// The identity is deleted and regenerated on every run so that its key
// algorithm is always the intended one. This also means artifacts signed by an
// earlier run no longer share a signer with new ones. Regeneration is guarded
// by an exclusive lock next to the key store so concurrent runs cannot sign
// with a half-written store.
package signing
