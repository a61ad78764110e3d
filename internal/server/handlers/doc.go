// Package handlers provides the HTTP handlers shared by the maintenance and
// admin servers: the live status endpoint, static maintenance assets, health
// and deployment history.
package handlers
