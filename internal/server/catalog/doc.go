// Package catalog is the server side of collection sync: it stores rows per
// user and collection in PostgreSQL, answers incremental pulls by update
// time, stamps pushed rows with the server clock and hands out presigned
// URLs for image rows.
package catalog
