package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luoxifan/agentgraph/persistence"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage persisted flow runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted run IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no persisted runs")
			return nil
		}
		for _, id := range runs {
			fmt.Println(id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the recorded history of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		snap, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("run %s (%d steps, current agent: %s)\n",
			snap.RunID, len(snap.History), snap.CurrentAgent)
		for i, rec := range snap.History {
			fmt.Printf("  %2d. %s -> %s at %s\n",
				i+1, rec.AgentName, rec.Action, rec.Timestamp.Format("15:04:05.000"))
			fmt.Printf("      %v\n", rec.Result)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSnapshotStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsCmd.PersistentFlags().String("store", "sqlite", "Snapshot store backend (sqlite or redis)")
}

// openSnapshotStore opens the snapshot store selected by --store.
func openSnapshotStore(cmd *cobra.Command) (persistence.SnapshotStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	backend, _ := cmd.Flags().GetString("store")
	switch backend {
	case "sqlite":
		return persistence.NewSQLiteStore(cfg.Database.Path)
	case "redis":
		return persistence.NewRedisStore(cfg.Redis.StoreConfig())
	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite or redis)", backend)
	}
}
