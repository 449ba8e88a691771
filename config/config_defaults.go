package config

import "github.com/rs/zerolog"

// DefaultConfigFileName is the name of the project configuration file commands look for in the working directory.
const DefaultConfigFileName = "statecache.json"

// GetDefaultProjectConfig obtains a default configuration for a project. The RPC url is left empty and must be
// provided before fetching.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Fetch: FetchConfig{
			RpcUrl:         "",
			RpcBlock:       0,
			PoolSize:       20,
			CacheDirectory: "",
			Addresses:      []string{},
			StorageSlots:   map[string][]string{},
			BlockNumbers:   []uint64{},
		},
		Snapshot: SnapshotConfig{
			InputPath:  "",
			OutputPath: "statecache-snapshot.json",
		},
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
			LogDirectory:         "",
		},
	}
}
