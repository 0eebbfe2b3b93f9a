package main

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"cca8/internal/logging"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "watch a directory for dropped observation files and tick on each one",
	Long: `watch runs the controller continuously, ticking once for every new
*.json observation file written to --watch-dir. Existing files in the
directory are ignored; only Create/Write events fire a tick. Ctrl-C to stop;
the runtime snapshot is saved after every tick.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(watchDir); err != nil {
			return fmt.Errorf("watch %s: %w", watchDir, err)
		}

		rt, err := buildRuntime()
		if err != nil {
			return err
		}
		log := logging.Get(logging.CategoryRuntime)
		log.Info("watching %s for observation files", watchDir)

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || filepath.Ext(ev.Name) != ".json" {
					continue
				}
				obs, err := loadObservation(ev.Name)
				if err != nil {
					log.Warn("skipping %s: %v", ev.Name, err)
					continue
				}
				res := rt.Tick(obs)
				if err := rt.Save(snapshotIn); err != nil {
					log.Error("snapshot save failed: %v", err)
				}
				log.Info("tick %d from %s: keyframe=%v action=%v", rt.Ctx.Ticks, ev.Name, res.Perception.Keyframe, res.Action)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Error("watch error: %v", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "watch-dir", "", "directory to watch for dropped observation files")
	watchCmd.MarkFlagRequired("watch-dir")
	addRuntimeFlags(watchCmd.Flags())
}
