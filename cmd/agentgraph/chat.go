package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/agent"
	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/internal/telemetry"
	"github.com/luoxifan/agentgraph/llm"
	"github.com/luoxifan/agentgraph/persistence"
	"github.com/luoxifan/agentgraph/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over an agent flow",
	Long: `Starts a read-eval loop. Each line is executed as a flow run: in agent
mode the model plans tool calls which are executed locally; otherwise the
model answers directly.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("provider", "p", "", "Provider kind (openai or ollama)")
	chatCmd.Flags().StringP("model", "m", "", "Model override")
	chatCmd.Flags().StringP("system-prompt", "s", "", "System prompt override")
	chatCmd.Flags().BoolP("agent", "a", true, "Enable agent mode with tool usage")
	chatCmd.Flags().Bool("save", false, "Persist each run's history to the snapshot store")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer tel.Shutdown(context.Background())

	providerKind, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	systemPrompt, _ := cmd.Flags().GetString("system-prompt")
	agentMode, _ := cmd.Flags().GetBool("agent")
	saveRuns, _ := cmd.Flags().GetBool("save")

	provider, err := buildProvider(cfg, providerKind, logger)
	if err != nil {
		return err
	}

	if !agentMode {
		return directChat(cmd.Context(), provider, model, systemPrompt)
	}

	var snapshots persistence.SnapshotStore
	if saveRuns {
		snapshots, err = persistence.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer snapshots.Close()
	}

	registry, err := builtinRegistry(logger)
	if err != nil {
		return err
	}

	var opts []agent.LLMAgentOption
	if model != "" {
		opts = append(opts, agent.WithModel(model))
	}
	if systemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(systemPrompt))
	}
	assistant := agent.NewLLMAgent("assistant", provider, registry, logger, opts...)

	flowOpts, err := engineOptions(cfg, logger, nil)
	if err != nil {
		return err
	}
	chatFlow := flow.New("chat", flowOpts...).
		Start(flow.NewNode(assistant))

	fmt.Println("agentgraph chat (agent mode). Type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		store := flow.NewContextStore()
		out, err := chatFlow.Execute(cmd.Context(), store, &types.AgentInput{Query: query})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		printOutput(out)
		if snapshots != nil {
			if err := snapshots.Save(cmd.Context(), store.Snapshot()); err != nil {
				fmt.Fprintf(os.Stderr, "save run: %v\n", err)
			}
		}
		logger.Debug("run finished",
			zap.String("run_id", store.RunID()),
			zap.Int("steps", store.GetFlowSummary().TotalSteps),
		)
	}
	return scanner.Err()
}

// directChat bypasses the flow engine and talks to the provider.
func directChat(ctx context.Context, provider llm.Provider, model, systemPrompt string) error {
	fmt.Println("agentgraph chat (direct mode). Type 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		req := &llm.ChatRequest{Model: model}
		if systemPrompt != "" {
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
		}
		req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: query})

		resp, err := provider.Generate(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(resp.Content)
	}
	return scanner.Err()
}

func printOutput(out *types.AgentOutput) {
	if out == nil {
		return
	}
	switch result := out.Result.(type) {
	case string:
		fmt.Println(result)
	case []map[string]any:
		for _, entry := range result {
			if errMsg, ok := entry["error"]; ok {
				fmt.Printf("%s: error: %v\n", entry["tool"], errMsg)
			} else {
				fmt.Printf("%s: %v\n", entry["tool"], entry["result"])
			}
		}
	default:
		fmt.Printf("%v\n", result)
	}
	if len(out.ToolsUsed) > 0 {
		fmt.Printf("(tools used: %s)\n", strings.Join(out.ToolsUsed, ", "))
	}
}
