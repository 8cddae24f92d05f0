// Package dex builds the smallest structurally valid DEX container.
//
// The container declares zero strings, types, prototypes, fields, methods and
// classes. It loads but does nothing; it exists so that a package can still be
// assembled when no compiler or assembler is installed.
package dex
