package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"forge/internal/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "forge",
		Short: "Forge - sandboxed AI coding agent service",
		Long: `Forge turns user prompts into working code. Each prompt runs a
checkpointed agent workflow inside a remote sandbox and persists the resulting
files, preview URL and summary as a conversation fragment.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./forge.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runsCmd)

	serveCmd.Flags().Int("api-port", 8080, "HTTP API port")
	serveCmd.Flags().String("database", "forge.db", "Database file path")
	serveCmd.Flags().String("nats", "nats://localhost:4222", "NATS server URL")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
	viper.BindPFlag("api_port", serveCmd.Flags().Lookup("api-port"))
	viper.BindPFlag("database_url", serveCmd.Flags().Lookup("database"))
	viper.BindPFlag("nats_url", serveCmd.Flags().Lookup("nats"))
	viper.BindPFlag("debug", serveCmd.Flags().Lookup("debug"))

	exportCmd.Flags().String("database", "forge.db", "Database file path")
	exportCmd.Flags().StringP("output", "o", ".", "Directory to export into")

	runsCmd.Flags().String("database", "forge.db", "Database file path")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("forge")
	}

	viper.SetEnvPrefix("FORGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func initLogging() {
	logging.Initialize(viper.GetBool("debug"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
