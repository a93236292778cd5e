package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ironladytech/onboarding/apps/di"
	"github.com/ironladytech/onboarding/core"
)

func main() {
	conf := core.NewConfig()
	logger := di.NewLogger(conf)

	c, err := di.New(context.Background(), conf, di.Options{Logger: logger, SkipMigrations: true})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}

	cli := newCommandLine(c.DB, c.Users, c.Steps, os.Stdout)
	err = cli.run(os.Args[1:])
	c.Close()
	if err != nil {
		os.Exit(1)
	}
}
