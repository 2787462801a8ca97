// Package catalog loads occupation catalogs from external sources.
//
// A Source produces the full list of catalog entries in one call. The core
// treats sources as black boxes; this package provides the sources used in
// practice:
//   - CSVSource: a delimited file with a header row, UTF-8 or Latin-1
//   - ControlFileSource: a SQL*Loader control file naming a delimited extract
//   - SQLSource: any database/sql query returning (title, code) rows
package catalog
