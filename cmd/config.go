package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/cmdgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the cmdgate config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config file",
	Long:  `Write a commented default config file. Defaults to .cmdgate/config.yaml. Existing files are left alone.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := localConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		if fileExists(path) {
			return fmt.Errorf("config file %s already exists", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		cmd.Printf("wrote %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Set one value in the config file, keeping its comments",
	Example: "  cmdgate config set heartbeat.interval 5s",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = localConfigPath
		}
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}

		// Report edits that leave the file unloadable.
		if _, _, err := loadConfig(viper.New(), path); err != nil {
			return fmt.Errorf("%s is now invalid: %w", path, err)
		}
		cmd.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if _, _, err := loadConfig(v, cfgFile); err != nil {
			return err
		}
		out, err := yaml.Marshal(v.AllSettings())
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		cmd.Print(string(out))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configSetCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
