package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/terrapix/terrapix-client-go/client"
	"github.com/terrapix/terrapix-client-go/service/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal("terrapix", zap.Error(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "terrapix",
		Short:         "Command-line client for the Terrapix detection platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", "", "API base URL")
	root.PersistentFlags().String("api-key", "", "API key")
	root.PersistentFlags().Duration("timeout", 30*time.Minute, "maximum time to wait for an operation")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	viper.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	viper.BindPFlag("api-key", root.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))
	viper.BindEnv("server", "TERRAPIX_BASE_URL")
	viper.BindEnv("api-key", "TERRAPIX_API_KEY")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			if logger, err := zap.NewDevelopmentConfig().Build(); err == nil {
				log.Set(logger)
			}
		}
	}

	root.AddCommand(newRasterCmd(), newDetectorCmd(), newResultCmd())
	return root
}

func newClient() (*client.Client, error) {
	return client.Connector{
		Server:  viper.GetString("server"),
		APIKey:  viper.GetString("api-key"),
		Timeout: viper.GetDuration("timeout"),
	}.Dial()
}
