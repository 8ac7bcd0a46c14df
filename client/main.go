package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"go_dir_sync/client/comms"
	"go_dir_sync/client/worker"
	"go_dir_sync/config"
	"go_dir_sync/constants"
	"go_dir_sync/fileio"
	"go_dir_sync/logging"
)

func main() {
	args := argparse.NewParser("client", constants.Title)

	bind := args.String("a", "address", &argparse.Options{Required: false, Help: "Backup server address (host:port)"})
	source := args.String("p", "path", &argparse.Options{Required: false, Help: "Directory to back up (defaults to the working directory)"})
	exclude := args.StringList("x", "exclude", &argparse.Options{Required: false, Help: "Glob of paths to skip, relative to the backed up directory. May be repeated"})
	dscp := args.Int("q", "dscp", &argparse.Options{Required: false, Help: "IPv4 TOS value for QoS, 0 leaves it untouched", Default: -1})
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
		if path, err = config.DefaultPath(constants.CLIENT_CONFIG_FILE); err != nil {
			log.Fatal("no config location", zap.Error(err))
		}
	}

	cfg, err := config.LoadClientConfig(path)
	if err != nil {
		log.Fatal("failed to load config", zap.String("path", path), zap.Error(err))
	}

	if *bind != "" {
		cfg.RemoteAddress = *bind
	}
	if len(*exclude) > 0 {
		cfg.Exclude = *exclude
	}
	if *dscp >= 0 {
		cfg.DSCP = *dscp
	}
	if *mptcp {
		cfg.MultipathTCP = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if *save {
		if err := cfg.Save(path); err != nil {
			log.Fatal("failed to save config", zap.Error(err))
		}
		fmt.Println("Saved configuration to", path)
	}

	root := *source
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			log.Fatal("no working directory", zap.Error(err))
		}
	}
	root = filepath.Clean(root)

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		fmt.Println("Provided path is not a directory:", root)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to host.
	client, err := comms.Connect(ctx, cfg.RemoteAddress, cfg.DSCP, cfg.MultipathTCP)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("Connected to", client.RemoteAddr())

	driver := worker.NewDriver(client,
		worker.WithWalker(&fileio.TreeWalker{Exclude: cfg.Exclude}),
		worker.WithLogger(log),
		worker.WithReporter(func(r worker.FileResult) {
			fmt.Printf("[%s] %s\n", r.Status, r.Path)
		}),
	)

	begin := time.Now()
	summary, err := driver.Run(ctx, root)
	if err != nil {
		fmt.Println("Transfer aborted:", err.Error())
		os.Exit(3)
	}

	// Server closes once everything before EndSession has been applied.
	if err := client.AwaitClose(); err != nil {
		log.Warn("server did not close cleanly", zap.Error(err))
	}

	fmt.Printf("Sent %d files (%s) and %d directories in %s\n",
		summary.Files, humanize.Bytes(summary.Bytes), summary.Directories, time.Since(begin).Round(time.Millisecond))
	if summary.Skipped > 0 {
		fmt.Println("Skipped", summary.Skipped, "entries that are neither files nor directories")
	}

	if !summary.OK() {
		fmt.Printf("%d files failed verification, %d got no acknowledgment\n", summary.Mismatched, summary.Anomalies)
		os.Exit(2)
	}
	fmt.Println("Server confirmed all files have been synced")
}
