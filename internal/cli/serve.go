package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpostma/toolgate/internal/config"
	"github.com/mpostma/toolgate/internal/server"
	"github.com/mpostma/toolgate/internal/tool"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := applyLogConfig(cfg); err != nil {
				return err
			}

			registry, caps, err := buildRegistry(cfg)
			if err != nil {
				return err
			}

			srv := server.New(registry, caps, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Addr()) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// buildRegistry wires the built-in tools from config.
func buildRegistry(cfg config.Config) (*tool.Registry, server.Capabilities, error) {
	registry := tool.NewRegistry(log, tool.WithMaxConcurrent(cfg.Server.MaxConcurrentCalls))
	caps := server.Capabilities{}

	fs, err := tool.NewFSTools(tool.FSConfig{
		Root:         cfg.Tools.Root,
		MaxFileBytes: cfg.Tools.MaxFileBytes,
	})
	if err != nil {
		return nil, caps, err
	}
	if err := fs.RegisterAll(registry); err != nil {
		return nil, caps, err
	}
	caps.Filesystem = true

	runner := tool.NewRunnerTool(tool.RunnerConfig{
		Command: cfg.Tools.Runner.Command,
		Dir:     cfg.Tools.Runner.Dir,
		Timeout: time.Duration(cfg.Tools.Runner.TimeoutSeconds) * time.Second,
	})
	if runner.Available() {
		if err := registry.Register(runner.Definition()); err != nil {
			return nil, caps, err
		}
		caps.Runner = true
	}

	openaiTools := tool.NewOpenAITools(tool.OpenAIConfig{
		APIKey:     cfg.Tools.OpenAI.APIKey,
		ChatModel:  cfg.Tools.OpenAI.ChatModel,
		ImageModel: cfg.Tools.OpenAI.ImageModel,
	})
	// The tools register even without a credential so /mcp callers get a
	// proper upstream_unavailable failure instead of unknown_tool.
	if err := openaiTools.RegisterAll(registry); err != nil {
		return nil, caps, err
	}
	caps.OpenAI = openaiTools.Available()

	return registry, caps, nil
}
