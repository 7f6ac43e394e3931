// Housekeeper — фоновые maintenance-задачи кластера, выполняемые только лидером.
//
// Использование:
//
//	housekeeper [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	serve    Запустить poller'ы и admin HTTP
//	migrate  Миграции БД
//	pollers  Статусы и ручной запуск poller'ов через admin API
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/housekeeper/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "housekeeper",
		Short:         "Housekeeper — leader-only maintenance pollers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8085", "Admin API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewServeCmd(),
		cli.NewMigrateCmd(),
		cli.NewPollerCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
