// Package main provides the graphstore CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orneryd/graphstore/pkg/config"
	"github.com/orneryd/graphstore/pkg/graphstore"
	"github.com/orneryd/graphstore/pkg/server"
	"github.com/orneryd/graphstore/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphstore",
		Short: "graphstore - an embedded, transactional property-graph store",
		Long: `graphstore is a small embedded graph database: named graphs of
typed nodes and edges carrying arbitrary JSON properties, with every
mutation reversible through an undo/redo stack.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphstore v%s (%s)\n", version, commit)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the graphstore HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config/env)")
	serveCmd.Flags().String("data-dir", "", "Data directory (overrides config/env)")
	serveCmd.Flags().Bool("in-memory", false, "Run with an in-memory engine instead of BadgerDB")
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	rootCmd.AddCommand(serveCmd)

	execCmd := &cobra.Command{
		Use:   "exec [json-command]",
		Short: "Execute a single JSON-encoded command against a data directory and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE:  runExec,
	}
	execCmd.Flags().String("data-dir", "./data", "Data directory")
	execCmd.Flags().Bool("in-memory", false, "Run with an in-memory engine instead of BadgerDB")
	rootCmd.AddCommand(execCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadFromEnv()
	}

	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		cfg.Server.Address = addr
	}
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Database.DataDir = dataDir
	}
	if inMemory, _ := cmd.Flags().GetBool("in-memory"); inMemory {
		cfg.Database.InMemory = true
	}
	return cfg, cfg.Validate()
}

func openEngine(cfg *config.Config) (storage.Engine, error) {
	if cfg.Database.InMemory {
		return storage.NewMemoryEngine(), nil
	}
	if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return storage.NewBadgerEngine(cfg.Database.DataDir)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer engine.Close()

	store := graphstore.NewStore(engine)
	srv := server.New(store, cfg)

	fmt.Printf("starting graphstore v%s\n", version)
	fmt.Printf("  data directory: %s (in-memory: %v)\n", cfg.Database.DataDir, cfg.Database.InMemory)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	fmt.Printf("  listening on:   http://%s\n", srv.Addr())
	fmt.Println("press ctrl+c to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("stopping server: %w", err)
	}
	fmt.Println("stopped")
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	inMemory, _ := cmd.Flags().GetBool("in-memory")
	cfg := &config.Config{Database: config.DatabaseConfig{DataDir: dataDir, InMemory: inMemory}}

	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer engine.Close()

	cmdVal, err := server.DecodeCommand([]byte(args[0]))
	if err != nil {
		return err
	}
	store := graphstore.NewStore(engine)
	reply, err := store.Execute(cmdVal)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(server.EncodeReply(reply))
}
