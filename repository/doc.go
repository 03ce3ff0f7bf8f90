// Package repository provides a generic repository over a database.Session.
// Reads run immediately; writes are queued on the session and reach the
// database when the session saves its changes.
package repository
