package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/synclist/internal/client/cli"
	"github.com/dmitrijs2005/synclist/internal/client/config"
	"github.com/dmitrijs2005/synclist/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx)

}
