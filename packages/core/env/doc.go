// Package env loads .env files and reads harness settings from the process
// environment.
//
// A .env file is exported into the process environment before configuration
// is layered, so variables such as BASE_URL or HNCHECK_TIMEOUT set there are
// seen by config.FromEnv.
package env
