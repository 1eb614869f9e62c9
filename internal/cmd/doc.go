// Package cmd provides the command-line interface implementation for
// pandabundle.
//
// The package is organized into the following commands:
//   - root: persistent flags, logging and configuration loading
//   - download: build a zip for a folder or the whole site
//   - tree, count, records: inspect the content listing
//   - validate: check a zip against the files of a scope
//   - seed: generate a synthetic listing
//   - mount: read-only FUSE view of the site
//   - serve: HTTP API and zip downloads
//
// Each command is implemented as a separate file with its own constructor
// function that returns a *cobra.Command. Commands that need the remote
// listing share loadConfig and loadForest.
package cmd
