package services

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dickeyy/bundle-dashboard/config"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// watchDebounce collapses the burst of events a single save produces.
const watchDebounce = 500 * time.Millisecond

// FileSource reads the dataset from a directory on disk, typically the
// checked-out pages branch the CI job commits to.
type FileSource struct {
	Dir  string
	Path string
}

func (s *FileSource) File() string {
	path := s.Path
	if path == "" {
		path = config.DatasetPath
	}
	return filepath.Join(s.Dir, filepath.FromSlash(path))
}

func (s *FileSource) Load(ctx context.Context) ([]types.MeasurementRecord, error) {
	f, err := os.Open(s.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.FetchError{StatusCode: http.StatusNotFound, Status: http.StatusText(http.StatusNotFound)}
		}
		return nil, &types.NetworkError{Err: err}
	}
	defer f.Close()
	return decodeDataset(f)
}

// Watch calls onChange after the dataset file is written, created or
// replaced, until ctx is done. The parent directory is watched so atomic
// renames are seen.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	file := filepath.Clean(s.File())
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return err
	}
	log.Info().Str("file", file).Msg("watching bundle data for changes")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != file || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("bundle data changed")
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}
