// Package testutil contains helper builders and backends used across tests
// to reduce boilerplate when constructing agent populations and asserting
// call ordering. These helpers are intentionally minimal and not intended
// for production usage.
package testutil
