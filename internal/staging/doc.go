// Package staging removes the temporary chunk directory once a run has
// consumed it, refusing paths that would take output or the user's home
// directory with it.
package staging
