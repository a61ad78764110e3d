// Package deploy sequences one deployment cycle: compare the latest release
// with the installed tag and, when they differ, open a maintenance window,
// stop the service, advance the checkout, restart the service and record the
// new tag.
package deploy
