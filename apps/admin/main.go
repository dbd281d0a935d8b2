package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hostelhq/hostel/core"
	logsvc "github.com/hostelhq/hostel/services/logger"
	"github.com/hostelhq/hostel/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	ctx := context.Background()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	backend, err := storage.Open(ctx, conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening %s storage: %v", conf.Storage.Driver, err), err)
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("failed to close storage", err)
		}
	}()

	cli, err := newCommandLine(ctx, conf, backend, logger, os.Stdout)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up: %v", err), err)
		return 1
	}
	if err := cli.run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		return 1
	}
	return 0
}
