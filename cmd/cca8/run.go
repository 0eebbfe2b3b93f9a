package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"cca8/internal/logging"
)

var obsDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the controller over every observation file in a directory, in sorted order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(obsDir)
		if err != nil {
			return fmt.Errorf("read observation dir: %w", err)
		}
		var paths []string
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			paths = append(paths, filepath.Join(obsDir, e.Name()))
		}
		sort.Strings(paths)

		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		log := logging.Get(logging.CategoryRuntime)

		for _, p := range paths {
			obs, err := loadObservation(p)
			if err != nil {
				return err
			}
			res := rt.Tick(obs)
			log.Info("tick %d (%s): keyframe=%v action=%v", rt.Ctx.Ticks, p, res.Perception.Keyframe, res.Action)
		}

		if err := ensureParentDir(snapshotIn); err != nil {
			return fmt.Errorf("prepare snapshot dir: %w", err)
		}
		if err := rt.Save(snapshotIn); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Printf("ran %d ticks, snapshot written to %s\n", len(paths), snapshotIn)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&obsDir, "obs-dir", "", "directory of observation JSON files, applied in sorted filename order")
	runCmd.MarkFlagRequired("obs-dir")
	addRuntimeFlags(runCmd.Flags())
}
