package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/logharbor/logharbor/internal/forwarder"
)

var args struct {
	Addr   string `arg:"--addr,env:LOGHARBOR_ADDR" default:"127.0.0.1:8089" help:"receiver host:port"`
	File   string `arg:"-f,--file,env:LOGHARBOR_FORWARD_FILE" help:"log file to forward (default: stdin)"`
	Follow bool   `arg:"--follow" help:"keep watching the file for appended lines"`
}

func main() {
	arg.MustParse(&args)

	if args.Follow && args.File == "" {
		log.Fatal("--follow requires --file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Printf("[Forwarder] Received signal: %v. Stopping...", sig)
		cancel()
	}()

	fw := forwarder.New(args.Addr)
	defer fw.Close()

	var err error
	switch {
	case args.Follow:
		err = fw.Follow(ctx, args.File)
	case args.File != "":
		var f *os.File
		f, err = os.Open(args.File)
		if err != nil {
			log.Fatalf("Open %s: %v", args.File, err)
		}
		defer f.Close()
		err = fw.Run(ctx, f)
	default:
		err = fw.Run(ctx, os.Stdin)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Forwarder: %v", err)
	}
	log.Println("Forwarder exited.")
}
