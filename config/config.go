package config

import (
	"encoding/json"
	"os"

	"github.com/crytic/medusa-statecache/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration of a statecache project, as stored in a statecache.json file.
type ProjectConfig struct {
	// Fetch describes where state is fetched from and which state is fetched.
	Fetch FetchConfig `json:"fetch"`

	// Snapshot describes where cache snapshots are loaded from and saved to.
	Snapshot SnapshotConfig `json:"snapshot"`

	// Logging describes the configuration used for logging
	Logging LoggingConfig `json:"logging"`
}

// FetchConfig describes the configuration options used to fetch state from a remote RPC endpoint.
type FetchConfig struct {
	// RpcUrl describes the URL of the JSON-RPC endpoint state is fetched from.
	RpcUrl string `json:"rpcUrl"`

	// RpcBlock describes the block height state is fetched at.
	RpcBlock uint64 `json:"rpcBlock"`

	// PoolSize describes the number of RPC clients used to issue requests concurrently.
	PoolSize uint `json:"poolSize"`

	// CacheDirectory describes the directory the persistent RPC cache is kept in. If empty, fetched state is only
	// cached in memory.
	CacheDirectory string `json:"cacheDirectory"`

	// Addresses describes the accounts to fetch.
	Addresses []string `json:"addresses"`

	// StorageSlots maps account addresses to the storage slot indices to fetch for them. Indices are decimal or
	// "0x"-prefixed hex strings.
	StorageSlots map[string][]string `json:"storageSlots"`

	// BlockNumbers describes the blocks whose hashes to fetch.
	BlockNumbers []uint64 `json:"blockNumbers"`
}

// SnapshotConfig describes the configuration options used to persist the in-memory cache.
type SnapshotConfig struct {
	// InputPath describes a snapshot to warm the cache from before fetching. If empty, the cache starts cold.
	InputPath string `json:"inputPath"`

	// OutputPath describes where the cache snapshot is saved once fetching completes.
	OutputPath string `json:"outputPath"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging"`

	// LogDirectory describes the directory where structured log files will be written. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Fields missing from the
// file keep their default values.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse project config '%s'", path)
	}
	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if p.Fetch.RpcUrl == "" {
		return errors.Errorf("an rpc url must be provided")
	}
	if p.Fetch.PoolSize == 0 {
		return errors.Errorf("rpc pool size must be a positive number")
	}

	if _, err := utils.HexStringsToAddresses(p.Fetch.Addresses); err != nil {
		return errors.Wrap(err, "malformed fetch address(es)")
	}
	for address, slots := range p.Fetch.StorageSlots {
		if _, err := utils.HexStringToAddress(address); err != nil {
			return errors.Wrap(err, "malformed storage slot address")
		}
		for _, slot := range slots {
			if _, err := utils.ParseStorageSlot(slot); err != nil {
				return err
			}
		}
	}

	if p.Snapshot.OutputPath == "" {
		return errors.Errorf("a snapshot output path must be provided")
	}
	return nil
}
