package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// maxFileSize bounds the event log. Publish starts it over once it grows past this.
const maxFileSize = 1 << 20

// File relays events through a newline-delimited JSON log shared by every instance on the
// host, so processes using the same session file see each other's changes without redis.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: filepath.Clean(path)}
}

func (f *File) Publish(c context.Context, event Event) error {
	c, span := otel.Tracer.Start(c, "File Publish")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "File Publish").
		Str(log.KeyFilename, f.path).
		Any(log.KeyEvent, event).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "marshaling event").Logger()
	payload, err := json.Marshal(event)
	if err != nil {
		err = fmt.Errorf("failed marshaling event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	payload = append(payload, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	logger = logger.With().Str(log.KeyProcess, "appending event").Logger()
	logger.Trace().Msg("appending event")
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		err = fmt.Errorf("failed creating event directory with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if info, err := os.Stat(f.path); err == nil && info.Size() > maxFileSize {
		flag |= os.O_TRUNC
	}
	file, err := os.OpenFile(f.path, flag, 0o600)
	if err != nil {
		err = fmt.Errorf("failed opening event file with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer file.Close()

	if _, err := file.Write(payload); err != nil {
		err = fmt.Errorf("failed appending event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Debug().Msg("appended event")
	return nil
}

// Subscribe returns once the watch is in place. Only events appended after that are
// delivered.
func (f *File) Subscribe(c context.Context) (<-chan Event, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "File Subscribe").
		Str(log.KeyFilename, f.path).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "watching event file").Logger()
	logger.Trace().Msg("watching event file")
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		err = fmt.Errorf("failed creating event directory with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	file, err := os.OpenFile(f.path, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		err = fmt.Errorf("failed opening event file with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	info, err := file.Stat()
	_ = file.Close()
	if err != nil {
		err = fmt.Errorf("failed reading event file size with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("failed creating watcher with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	// the directory is watched so that a file replaced by another process is still seen
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		err = fmt.Errorf("failed watching event directory with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("watching event file")

	events := make(chan Event, subscriberBuffer)
	go func() {
		defer close(events)
		defer watcher.Close()

		offset := info.Size()
		for {
			select {
			case <-c.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("failed watching event file")
			case notification, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(notification.Name) != f.path ||
					!(notification.Has(fsnotify.Write) || notification.Has(fsnotify.Create)) {
					continue
				}
				var received []Event
				received, offset = f.readFrom(logger, offset)
				for _, event := range received {
					select {
					case events <- event:
					case <-c.Done():
						return
					}
				}
			}
		}
	}()

	return events, nil
}

// readFrom decodes the complete lines appended after offset and returns the offset to
// continue from. A file that shrank was started over, so it is read from the beginning.
func (f *File) readFrom(logger zerolog.Logger, offset int64) ([]Event, int64) {
	file, err := os.Open(f.path)
	if err != nil {
		logger.Warn().Err(err).Msg("failed opening event file")
		return nil, offset
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		logger.Warn().Err(err).Msg("failed reading event file size")
		return nil, offset
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		logger.Warn().Err(err).Msg("failed seeking event file")
		return nil, offset
	}
	content, err := io.ReadAll(file)
	if err != nil {
		logger.Warn().Err(err).Msg("failed reading event file")
		return nil, offset
	}

	// a trailing partial line is left for the next notification
	end := bytes.LastIndexByte(content, '\n')
	if end < 0 {
		return nil, offset
	}

	received := []Event{}
	for _, line := range bytes.Split(content[:end], []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		event := Event{}
		if err := json.Unmarshal(line, &event); err != nil {
			err = fmt.Errorf("failed unmarshaling event with error=%w", err)
			logger.Warn().Err(err).Msg(err.Error())
			continue
		}
		received = append(received, event)
	}
	return received, offset + int64(end) + 1
}
