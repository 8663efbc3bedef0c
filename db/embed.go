// Package db provides the embedded catalog schema.
package db

import _ "embed"

// Schema contains the idempotent DDL for the categories and products tables.
//
//go:embed migrations/001_schema.sql
var Schema string
