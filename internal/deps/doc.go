// Package deps reports whether the external binaries batchscribe shells out
// to are installed.
package deps
