// Package git inspects the deployed checkout with go-git.
//
// The deployer advances its checkout with the git command line (fetch,
// checkout of a tag). After a successful update this package confirms what
// was actually checked out: the HEAD commit and the commit the release tag
// points at, peeling annotated tags.
package git
