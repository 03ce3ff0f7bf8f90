// Package types holds the value types shared by the repository and unit of
// work: query descriptions, page requests, transaction states and JSON columns.
package types
