package cmd

import "github.com/crytic/medusa-statecache/config"

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = config.DefaultConfigFileName

// logFileTimeFormat is the layout of the timestamp in log file names.
const logFileTimeFormat = "20060102-150405"
