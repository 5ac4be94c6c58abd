// Package git inspects the local Git repository a site is built from.
//
// It only reads: the repository root, the HEAD commit, and whether tracked
// files have uncommitted changes. Publishing itself never touches the local
// repository; it goes through the GitHub API.
package git
