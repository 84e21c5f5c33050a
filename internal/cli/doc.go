// Package cli parses the fastmarch command line into a Config and builds the
// application logger.
package cli
