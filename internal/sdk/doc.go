// Package sdk locates platform assets that are not on PATH: the platform API
// archive (android.jar) and the apktool repackaging jar.
//
// A search is an ordered list of candidate providers (static paths, directory
// scans sorted by API level, SDK roots from the environment). The first
// candidate that exists on the filesystem view wins. The filesystem is an
// afero.Fs so tests can run against an in-memory tree.
package sdk
