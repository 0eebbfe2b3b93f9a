package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var obsPath string

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "run a single controller tick from an observation file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		obs, err := loadObservation(obsPath)
		if err != nil {
			return err
		}

		res := rt.Tick(obs)
		if err := ensureParentDir(snapshotIn); err != nil {
			return fmt.Errorf("prepare snapshot dir: %w", err)
		}
		if err := rt.Save(snapshotIn); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}

		out := map[string]interface{}{
			"tick":        rt.Ctx.Ticks,
			"keyframe":    res.Perception.Keyframe,
			"kf_reasons":  res.Perception.KeyframeReasons,
			"drive_flags": rt.Ctx.LastDriveFlags,
		}
		if res.Action != nil {
			out["policy"] = res.Action.Policy
			out["status"] = res.Action.Status
			out["reward"] = res.Action.Reward
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	tickCmd.Flags().StringVar(&obsPath, "obs", "", "path to an observation JSON file")
	tickCmd.MarkFlagRequired("obs")
	addRuntimeFlags(tickCmd.Flags())
}
