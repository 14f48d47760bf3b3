// Package cli implements the netmock command line: inspecting and pruning
// archives, and running the recording proxy.
package cli
