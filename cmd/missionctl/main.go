package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"DopamineBreaker/pkg/logger"
)

var CLI struct {
	Refresh   RefreshCmd   `cmd:"" help:"Generate today's mission catalog if it does not exist yet."`
	Show      ShowCmd      `cmd:"" help:"Show the mission catalog for a day."`
	Available AvailableCmd `cmd:"" help:"Show missions still available for a day."`
	Migrate   MigrateCmd   `cmd:"" help:"Run database migrations."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("missionctl"),
		kong.Description("DopamineBreaker daily mission maintenance"),
		kong.UsageOnError(),
	)

	logger.Init()
	defer logger.Sync()

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
