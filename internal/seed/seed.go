// Package seed fills an empty vault with demo notes and tasks.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/notevault/internal/record"
)

//go:embed fixture.yaml
var fixtureYAML []byte

type Fixture struct {
	Notes []FixtureNote `yaml:"notes"`
	Tasks []FixtureTask `yaml:"tasks"`
}

type FixtureNote struct {
	Key     string `yaml:"key"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

type FixtureTask struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	DueInDays   int      `yaml:"due_in_days"`
	Notes       []string `yaml:"notes"`
}

func DefaultFixture() (*Fixture, error) {
	return ParseFixture(fixtureYAML)
}

// ParseFixture decodes a fixture and checks that every task references known notes.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixture: %w", err)
	}
	keys := make(map[string]struct{}, len(f.Notes))
	for _, n := range f.Notes {
		if _, dup := keys[n.Key]; dup {
			return nil, fmt.Errorf("seed fixture: duplicate note key %q", n.Key)
		}
		keys[n.Key] = struct{}{}
	}
	for _, t := range f.Tasks {
		for _, k := range t.Notes {
			if _, ok := keys[k]; !ok {
				return nil, fmt.Errorf("seed fixture: task %q references unknown note %q", t.Title, k)
			}
		}
	}
	return &f, nil
}

// Run seeds repo from f when it holds no tasks yet. Deadlines are relative
// to now. It reports whether anything was written.
func Run(ctx context.Context, repo record.Repository, f *Fixture, now time.Time) (bool, error) {
	existing, err := repo.ListTasks(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	createdAt := now.Format("2006-01-02T15:04:05.000000")
	noteIDs := make(map[string]int, len(f.Notes))
	for _, n := range f.Notes {
		id, err := repo.CreateNote(ctx, record.NoteInput{Title: n.Title, Content: n.Content, CreatedAt: createdAt})
		if err != nil {
			return false, fmt.Errorf("seed note %q: %w", n.Key, err)
		}
		noteIDs[n.Key] = id
	}
	for _, t := range f.Tasks {
		id, err := repo.CreateTask(ctx, record.TaskInput{
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Deadline:    now.AddDate(0, 0, t.DueInDays).Format("2006-01-02"),
		})
		if err != nil {
			return false, fmt.Errorf("seed task %q: %w", t.Title, err)
		}
		for _, k := range t.Notes {
			if err := repo.Link(ctx, id, noteIDs[k]); err != nil {
				return false, fmt.Errorf("seed link %q: %w", t.Title, err)
			}
		}
	}
	slog.InfoContext(ctx, "seeded vault", "notes", len(f.Notes), "tasks", len(f.Tasks))
	return true, nil
}
