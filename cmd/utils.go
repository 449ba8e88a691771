package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/medusa-statecache/config"
	"github.com/crytic/medusa-statecache/logging"
	"github.com/crytic/medusa-statecache/logging/colors"
	"github.com/crytic/medusa-statecache/utils"
	"github.com/spf13/cobra"
)

// loadProjectConfig resolves the project configuration for a command and navigates through the following
// possibilities:
// #1: We will search for either a custom config file (via --config) or the default (statecache.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If statecache.json can't be found, use the default project configuration.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}

	// Possibility #2: The requested file does not exist
	if configFlagUsed {
		return nil, existenceError
	}

	// Possibility #3: Fall back to the defaults
	cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration", configPath))
	return config.GetDefaultProjectConfig(), nil
}

// setupGlobalLogger replaces logging.GlobalLogger with one configured by the logging config, writing structured logs
// to a timestamped file in the log directory if one is set. The returned function closes the log file.
func setupGlobalLogger(loggingConfig config.LoggingConfig) (func(), error) {
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level, loggingConfig.EnableConsoleLogging)
	cmdLogger.SetLevel(loggingConfig.Level)
	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}

	fileName := fmt.Sprintf("statecache-%s.log", time.Now().Format(logFileTimeFormat))
	file, err := utils.CreateFile(loggingConfig.LogDirectory, fileName)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED)
	cmdLogger.AddWriter(file, logging.STRUCTURED)

	return func() {
		logging.GlobalLogger.RemoveWriter(file)
		cmdLogger.RemoveWriter(file)
		_ = file.Close()
	}, nil
}
