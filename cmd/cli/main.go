package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reportdesk/cmd/cli/client"
)

var apiClient *client.APIClient

var rootCmd = &cobra.Command{
	Use:   "reportdesk",
	Short: "reportdesk CLI - helpdesk ticket report administration",
	Long: `reportdesk CLI administers companies, report schedules, and ticket
report requests against a running reportdesk server.`,
}

func init() {
	viper.SetConfigName(".reportdesk")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")
	viper.SetDefault("server", "http://localhost:8080")
	_ = viper.ReadInConfig()

	apiClient = client.NewAPIClient(viper.GetString("server"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
