package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0ngyang/catai/internal/adapter/oaiassistant"
	"github.com/s0ngyang/catai/internal/config"
	"github.com/s0ngyang/catai/internal/tools"
)

const defaultInstructions = `You are a friendly assistant who loves cats.
When the user asks to see cats, call getCatImage with the number of pictures they want
(and a breed id if they name one), then tell them what you found.`

// sessionTools returns a registry holding the tools a chat session registers.
func sessionTools(cfg *config.Config) *tools.Registry {
	registry := tools.NewRegistry()
	registerSessionTools(registry, imageFetcher(cfg, nil), nil, cfg.MaxImages)
	return registry
}

func buildAssistantCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Manage the remote assistant",
	}
	cmd.AddCommand(buildAssistantCreateCmd(opts))
	return cmd
}

func buildAssistantCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		name         string
		model        string
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an OpenAI assistant that can call getCatImage",
		Example: `  catai assistant create --name "Cat Bot"
  export OPENAI_ASSISTANT_ID=$(catai assistant create)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required")
			}
			if model == "" {
				model = cfg.Model
			}

			client := oaiassistant.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, "", cfg.HTTPTimeout)
			id, err := client.CreateAssistant(cmd.Context(), oaiassistant.AssistantSpec{
				Name:         name,
				Model:        model,
				Instructions: instructions,
				Tools:        sessionTools(cfg).Definitions(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "catai", "Assistant name")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (defaults to OPENAI_MODEL)")
	cmd.Flags().StringVar(&instructions, "instructions", defaultInstructions, "System instructions")
	return cmd
}
