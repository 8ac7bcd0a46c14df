package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"go_dir_sync/config"
	"go_dir_sync/constants"
	"go_dir_sync/logging"
	server "go_dir_sync/server/controller"
)

func main() {
	args := argparse.NewParser("server", constants.Title)

	addr := args.String("a", "address", &argparse.Options{Required: false, Help: "Listen on address (host:port)"})
	dir := args.String("d", "backup-dir", &argparse.Options{Required: false, Help: "Root path for storing backups"})
	cfgPath := args.String("c", "config", &argparse.Options{Required: false, Help: "Config file path"})
	save := args.Flag("s", "save", &argparse.Options{Help: "Save the resulting settings to the config file"})
	mptcp := args.Flag("m", "mptcp", &argparse.Options{Help: "Enable Multipath TCP"})
	verbose := args.Flag("v", "verbose", &argparse.Options{Help: "Log every protocol event"})

	err := args.Parse(os.Args)

	if err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	log := logging.New(*verbose)
	defer log.Sync()

	path := *cfgPath
	if path == "" {
		if path, err = config.DefaultPath(constants.SERVER_CONFIG_FILE); err != nil {
			log.Fatal("no config location", zap.Error(err))
		}
	}

	cfg, created, err := config.LoadOrCreateServerConfig(path)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", path), zap.Error(err))
	}
	if created {
		log.Info("no config found, created default", zap.String("path", path))
	}

	if *addr != "" {
		cfg.Address = *addr
	}
	if *dir != "" {
		cfg.BackupDir = *dir
	}
	if *mptcp {
		cfg.MultipathTCP = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	if *save {
		if err := cfg.Save(path); err != nil {
			log.Fatal("failed to save config", zap.Error(err))
		}
		log.Info("saved configuration", zap.String("path", path))
	}

	srv, err := server.New(cfg.BackupDir, server.WithLogger(log), server.WithMultipathTCP(cfg.MultipathTCP))
	if err != nil {
		log.Fatal("cannot start server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Address); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("bye")
}
