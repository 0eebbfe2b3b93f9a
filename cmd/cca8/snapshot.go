package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "inspect or seed runtime snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "build a fresh runtime and save it to --snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		if err := ensureParentDir(snapshotIn); err != nil {
			return fmt.Errorf("prepare snapshot dir: %w", err)
		}
		if err := rt.Save(snapshotIn); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Printf("snapshot written to %s\n", snapshotIn)
		return nil
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "load --snapshot and print a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		fmt.Printf("ticks=%d controller_steps=%d bindings=%d drive_flags=%v\n",
			rt.Ctx.Ticks, rt.Ctx.ControllerSteps, rt.World.Len(), rt.Ctx.LastDriveFlags)
		fmt.Println(rt.World.ActionSummaryText())
		return nil
	},
}

func init() {
	addRuntimeFlags(snapshotSaveCmd.Flags())
	addRuntimeFlags(snapshotLoadCmd.Flags())
}
