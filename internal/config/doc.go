// Package config defines packager settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings cover platform versions, the signing identity location, extra
// apktool.jar locations and per-tool timeouts. A missing default file means
// built-in defaults.
package config
