package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sqlporter/internal/console"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// Log is the process-wide supervisor logger, built once in
	// PersistentPreRunE and shared by every command.
	Log *console.Logger
)

var RootCmd = &cobra.Command{
	Use:   "sqlporter",
	Short: "Move database schema and data through portable archives",
	Long: `sqlporter snapshots a database into a portable archive and replays
it elsewhere: schema scripts in dependency order plus one format/data
pair per table. Built for CI snapshots and local-dev bootstrap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := console.ParseLevel(viper.GetString("settings.log_level"))
		if err != nil {
			return err
		}
		Log = console.New(level, viper.GetBool("settings.timestamps"))
		return nil
	},
}

// exitCodeError carries a specific process exit code to Execute. The
// export stage needs the three-way 0/1/2 signal; plain errors exit 1.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			if ec.msg != "" {
				fmt.Fprintln(os.Stderr, ec.msg)
			}
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sqlporter.yaml)")
	RootCmd.PersistentFlags().StringP("server", "S", "", "server host[:port] or host\\instance")
	RootCmd.PersistentFlags().StringP("user", "U", "", "login name")
	RootCmd.PersistentFlags().StringP("password", "P", "", "login password")
	RootCmd.PersistentFlags().BoolP("trusted", "E", false, "use trusted (integrated) authentication")
	RootCmd.PersistentFlags().Bool("trust-server-cert", false, "trust the server certificate without validation")
	RootCmd.PersistentFlags().String("log-level", "info", "verbosity: error|warn|info|debug|trace")
	RootCmd.PersistentFlags().Bool("timestamps", false, "prefix log lines with a timestamp")

	viper.BindPFlag("connection.server", RootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("connection.user", RootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("connection.password", RootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("connection.trusted", RootCmd.PersistentFlags().Lookup("trusted"))
	viper.BindPFlag("connection.trust_server_cert", RootCmd.PersistentFlags().Lookup("trust-server-cert"))
	viper.BindPFlag("settings.log_level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.timestamps", RootCmd.PersistentFlags().Lookup("timestamps"))

	viper.SetDefault("settings.log_level", "info")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("sqlporter")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SQLPORTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
