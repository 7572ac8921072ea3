package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultSystemPrompt = "You are a helpful assistant that can manage tasks and notes. Use the available tools to help users."

// PromptSource supplies the system prompt for each model call.
type PromptSource interface {
	Prompt() string
}

type StaticPrompt string

func (p StaticPrompt) Prompt() string { return string(p) }

// ReloadDebounce is how long FilePrompt waits after the last file event
// before reading the file again.
var ReloadDebounce = 200 * time.Millisecond

// FilePrompt serves the contents of a file and follows changes to it.
// An empty or unreadable file keeps the previous prompt.
type FilePrompt struct {
	path    string
	current atomic.Pointer[string]
}

func NewFilePrompt(path string) (*FilePrompt, error) {
	p := &FilePrompt{path: path}
	text, err := readPrompt(path)
	if err != nil {
		return nil, err
	}
	p.current.Store(&text)
	return p, nil
}

func (p *FilePrompt) Prompt() string {
	return *p.current.Load()
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	return text, nil
}

// Watch reloads the prompt whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are followed.
func (p *FilePrompt) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}
	name := filepath.Base(p.path)

	reload := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(ReloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			text, err := readPrompt(p.path)
			if err != nil {
				slog.WarnContext(ctx, "keeping previous system prompt", "path", p.path, "error", err)
				continue
			}
			if text != p.Prompt() {
				p.current.Store(&text)
				slog.InfoContext(ctx, "system prompt reloaded", "path", p.path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "prompt watcher error", "error", err)
		}
	}
}
