// Command freezecheck verifies that the record_test_and_sync_stats stored
// procedure is deployed behind the Supabase REST gateway and that its
// historical-write guard rejects edits to past dates. It is a manual
// post-migration smoke check; all findings go to stdout and the exit code
// summarizes the run (0 passed, 1 config error, 2 failed, 3 inconclusive).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/freemank1224/vibe-word-master/internal/check"
	"github.com/freemank1224/vibe-word-master/internal/config"
	"github.com/freemank1224/vibe-word-master/internal/envfile"
	"github.com/freemank1224/vibe-word-master/internal/logging"
	"github.com/freemank1224/vibe-word-master/internal/supabase"
)

const exitConfigError = 1

func main() {
	var (
		envPath = flag.String("env", ".env", "Path to the env file with SUPABASE_URL and SUPABASE_ANON_KEY")
		timeout = flag.Duration("timeout", 0, "Per-call timeout; overrides RPC_TIMEOUT_SECONDS when set")
		verbose = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	runID := uuid.NewString()
	logger := logging.New("freezecheck", runID, *verbose)

	cfg, err := config.Load(*envPath)
	if err != nil {
		switch {
		case errors.Is(err, envfile.ErrNotFound):
			fmt.Printf("❌ %s not found\n", *envPath)
		default:
			fmt.Printf("❌ SUPABASE_URL or SUPABASE_ANON_KEY missing in %s (%v)\n", *envPath, err)
		}
		os.Exit(exitConfigError)
	}
	if *timeout > 0 {
		cfg.RPCTimeout = *timeout
	}

	client := supabase.NewClient(supabase.Config{
		BaseURL: cfg.SupabaseURL,
		AnonKey: cfg.AnonKey,
		Timeout: cfg.RPCTimeout,
	}, logger)
	logger.Info().Str("endpoint", client.RPCURL()).Dur("timeout", cfg.RPCTimeout).Msg("starting freeze check")

	// Generous outer bound: two sequential calls plus slack.
	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.RPCTimeout)
	defer cancel()

	runner := check.NewRunner(client, cfg, os.Stdout, logger)
	outcome := runner.Run(ctx)

	logger.Info().Stringer("outcome", outcome).Msg("freeze check finished")
	os.Exit(outcome.ExitCode())
}
