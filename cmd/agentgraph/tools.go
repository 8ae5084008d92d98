package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and execute the bundled tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := buildLoggerFromCmd(cmd)
		if err != nil {
			return err
		}
		registry, err := builtinRegistry(logger)
		if err != nil {
			return err
		}

		described := registry.Describe()
		fmt.Printf("Available tools (%d):\n", len(described))
		for _, tag := range []string{"math", "file", "search"} {
			fmt.Printf("  %s tools:\n", tag)
			for _, name := range registry.SearchByTag(tag) {
				tool, _ := registry.Get(name)
				fmt.Printf("    %s: %s\n", tool.Name, tool.Description)
			}
		}
		return nil
	},
}

var toolsMathCmd = &cobra.Command{
	Use:   "math <operation> <numbers...>",
	Short: "Execute a math tool (add, subtract, multiply, divide, power, sqrt)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := buildLoggerFromCmd(cmd)
		if err != nil {
			return err
		}
		registry, err := builtinRegistry(logger)
		if err != nil {
			return err
		}

		operation := args[0]
		numbers := make([]any, 0, len(args)-1)
		for _, raw := range args[1:] {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("parse number %q: %w", raw, err)
			}
			numbers = append(numbers, n)
		}

		toolArgs := map[string]any{"numbers": numbers}
		switch operation {
		case "power":
			if len(numbers) != 2 {
				return fmt.Errorf("power needs exactly two numbers")
			}
			toolArgs = map[string]any{"base": numbers[0], "exponent": numbers[1]}
		case "sqrt":
			if len(numbers) != 1 {
				return fmt.Errorf("sqrt needs exactly one number")
			}
			toolArgs = map[string]any{"number": numbers[0]}
		}

		executor := tools.NewExecutor(registry, logger)
		result := executor.Run(cmd.Context(), operation, toolArgs)
		if !result.Success {
			return fmt.Errorf("%s failed: %s", operation, result.Error)
		}
		fmt.Printf("Result: %v\n", result.Result)
		return nil
	},
}

var toolsFileCmd = &cobra.Command{
	Use:   "file <operation> <path> [content]",
	Short: "Execute a file tool (read_file, write_file, list_dir, create_dir, file_exists)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := buildLoggerFromCmd(cmd)
		if err != nil {
			return err
		}
		registry, err := builtinRegistry(logger)
		if err != nil {
			return err
		}

		operation := args[0]
		toolArgs := map[string]any{"path": args[1]}
		if len(args) == 3 {
			toolArgs["content"] = args[2]
		}

		executor := tools.NewExecutor(registry, logger)
		result := executor.Run(cmd.Context(), operation, toolArgs)
		if !result.Success {
			return fmt.Errorf("%s failed: %s", operation, result.Error)
		}
		fmt.Printf("%v\n", result.Result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsMathCmd)
	toolsCmd.AddCommand(toolsFileCmd)
}

// buildLoggerFromCmd loads the config and builds a logger in one step for
// commands that need nothing else from the config.
func buildLoggerFromCmd(cmd *cobra.Command) (*zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildLogger(cfg)
}
