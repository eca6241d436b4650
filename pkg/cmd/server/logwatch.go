package server

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/async-race-service/log"
)

// watchLogConfig applies changes of the log config file to logger until ctx is done.
func watchLogConfig(ctx context.Context, file string, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files, so the directory is watched instead of the file
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(file)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target ||
					!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				reloadLogConfig(file, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("log config watcher error", log.ErrorField(err))
			}
		}
	}()
	return nil
}

func reloadLogConfig(file string, logger *log.Logger) {
	cfg, err := log.LoadConfig(file)
	if err != nil {
		log.Warn("Could not read log config", log.String("file", file), log.ErrorField(err))
		return
	}
	if err := logger.ApplyConfig(cfg); err != nil {
		log.Warn("Could not apply log config", log.String("file", file), log.ErrorField(err))
		return
	}
	log.Info("Log config reloaded", log.String("file", file), log.String("rules", cfg.Rules()))
}
