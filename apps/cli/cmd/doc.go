// Package cmd implements the hncheck CLI commands using Cobra.
//
// Available commands:
//   - run: Check the item API against its contract
//   - validate: Validate a saved payload offline
//   - list: Display the scenario catalog
//   - mock: Serve a fake upstream seeded with items
//   - record: Save upstream responses as fixtures
//   - init: Write a starter configuration file
//   - version: Show hncheck version information
//
// Flags override configuration files, which override HNCHECK_* environment
// variables and .env files.
package cmd
