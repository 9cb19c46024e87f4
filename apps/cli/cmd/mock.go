package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag   int
	mockDelayFlag  string
	mockPrefixFlag string
	mockSeedFlag   string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a fake item API",
	Long: `Start an HTTP server that behaves like the Hacker News item API.

The mock server:
- Serves /topstories.json and /item/{id}.json from a seed file
- Answers null for unknown or non-numeric ids and for ids without .json
- Ignores unknown query parameters and honors print=pretty
- Can add artificial delays and fault status codes

A seed file is JSON: {"topstories": [...], "items": [...], "faults": {"/item/1.json": 503}}.

Examples:
  hncheck mock
  hncheck mock --port 3000 --prefix /v0
  hncheck mock --seed seed.json --delay 100ms
  hncheck run --base-url http://localhost:3000/v0`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", 3000, "Port to run the mock server on")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().StringVar(&mockPrefixFlag, "prefix", "/v0", "Path prefix for all routes")
	mockCmd.Flags().StringVar(&mockSeedFlag, "seed", "", "Seed file (default: built-in sample items)")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return usageError("invalid delay value %q: %w", mockDelayFlag, err)
		}
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithPrefix(mockPrefixFlag),
		mock.WithLogger(logger),
	}

	var (
		server *mock.Server
		err    error
	)
	if mockSeedFlag != "" {
		server = mock.NewServer(opts...)
		err = server.LoadSeedFile(mockSeedFlag)
	} else {
		server, err = mock.NewDefaultServer(opts...)
	}
	if err != nil {
		return withCode(ExitConfigError, fmt.Errorf("failed to load seed: %w", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %d items on http://localhost:%d%s\n", len(server.ItemIDs()), mockPortFlag, mockPrefixFlag)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down mock server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return server.Start(ctx)
}
