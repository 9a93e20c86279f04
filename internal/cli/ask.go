package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpostma/toolgate/internal/config"
	"github.com/mpostma/toolgate/internal/llm"
	"github.com/mpostma/toolgate/internal/session"
	"github.com/mpostma/toolgate/internal/store"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID string
		sysPrompt string
		thinking  int
		attach    []string
	)

	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message through a tool-using conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := applyLogConfig(cfg); err != nil {
				return err
			}

			registry, _, err := buildRegistry(cfg)
			if err != nil {
				return err
			}

			client := llm.NewAnthropicClient(cfg.Session.APIKey, log)

			opts := []session.Option{
				session.WithFileStore(llm.NewAnthropicFileStore(cfg.Session.APIKey)),
			}
			if sessionID != "" {
				opts = append(opts, session.WithID(sessionID))
			}

			var db *store.DB
			if cfg.Session.HistoryDB != "" {
				db, err = store.Open(cfg.Session.HistoryDB, log)
				if err != nil {
					return err
				}
				defer db.Close()
				opts = append(opts, session.WithHistoryStore(db))
			}

			sess := session.New(session.Config{
				Model:          cfg.Session.Model,
				SystemPrompt:   cfg.Session.SystemPrompt,
				MaxTokens:      cfg.Session.MaxTokens,
				Temperature:    cfg.Session.Temperature,
				ThinkingBudget: cfg.Session.ThinkingBudget,
				MaxToolRounds:  cfg.Session.MaxToolRounds,
				MaxAttachments: cfg.Session.MaxAttachments,
				Debug:          cfg.Session.Debug,
			}, client, registry, log, opts...)

			if sessionID != "" && db != nil {
				if err := sess.Restore(); err != nil {
					log.Warn().Err(err).Msg("could not restore session history")
				}
			}

			for _, path := range attach {
				if _, err := sess.UploadFile(cmd.Context(), path, true); err != nil {
					return fmt.Errorf("attach %s: %w", path, err)
				}
			}

			var callOpts session.CallOptions
			if sysPrompt != "" {
				callOpts.SystemPrompt = &sysPrompt
			}
			if cmd.Flags().Changed("thinking") {
				callOpts.ThinkingBudget = &thinking
			}

			result, err := sess.Call(cmd.Context(), strings.Join(args, " "), &callOpts)
			if err != nil {
				return err
			}

			fmt.Println(result.Text)
			log.Info().
				Int("inputTokens", result.Usage.InputTokens).
				Int("outputTokens", result.Usage.OutputTokens).
				Int("rounds", result.Rounds).
				Int("toolCalls", len(result.ToolCalls)).
				Str("sessionId", sess.ID()).
				Msg("turn complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id to resume")
	cmd.Flags().StringVar(&sysPrompt, "system", "", "system prompt override for this call")
	cmd.Flags().IntVar(&thinking, "thinking", 0, "thinking token budget for this call (0 disables)")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "file to upload and attach persistently")

	return cmd
}
