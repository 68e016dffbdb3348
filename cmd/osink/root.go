package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "osink",
	Short: "osink writes a delimited file to an object store as rolled objects",
	Long: `A developer-focused tool that streams tuples from a delimited file through an
object storage sink (COS, S3A or SWIFT2D) and prints the objects it closed.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.osink.yaml)")
	rootCmd.PersistentFlags().String("level", "info", "log level: trace, debug, info, warn, error")
	viper.BindPFlag("level", rootCmd.PersistentFlags().Lookup("level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".osink")
	}

	viper.SetEnvPrefix("OSINK")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
