package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kazz187/notevault/internal/agent"
	"github.com/kazz187/notevault/internal/conversation"
	"github.com/kazz187/notevault/internal/record"
)

type printer struct {
	w      io.Writer
	human  *color.Color
	ai     *color.Color
	tool   *color.Color
	dim    *color.Color
	status map[string]*color.Color
}

func newPrinter(w io.Writer, colored bool) *printer {
	p := &printer{
		w:     w,
		human: color.New(color.FgCyan, color.Bold),
		ai:    color.New(color.FgGreen, color.Bold),
		tool:  color.New(color.FgYellow),
		dim:   color.New(color.Faint),
		status: map[string]*color.Color{
			record.StatusPending:    color.New(color.FgYellow),
			record.StatusInProgress: color.New(color.FgBlue),
			record.StatusCompleted:  color.New(color.FgGreen),
		},
	}
	for _, c := range p.colors() {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) colors() []*color.Color {
	cs := []*color.Color{p.human, p.ai, p.tool, p.dim}
	for _, c := range p.status {
		cs = append(cs, c)
	}
	return cs
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) transcript(res *agent.Result) {
	for _, m := range res.Messages {
		switch m.Role {
		case conversation.RoleHuman:
			p.human.Fprint(p.w, "you> ")
			fmt.Fprintln(p.w, m.Content)
		case conversation.RoleAI:
			for _, tc := range m.ToolCalls {
				p.tool.Fprintf(p.w, "  -> %s %s\n", tc.Name, tc.Args)
			}
			if m.Content != "" {
				p.ai.Fprint(p.w, "agent> ")
				fmt.Fprintln(p.w, m.Content)
			}
		case conversation.RoleTool:
			p.dim.Fprintf(p.w, "  <- %s %s\n", m.Name, truncate(m.Content, 200))
		case conversation.RoleSystem:
			p.dim.Fprintf(p.w, "system> %s\n", m.Content)
		}
	}
	if res.Outcome != agent.OutcomeDone {
		p.tool.Fprintf(p.w, "(stopped: %s)\n", res.Outcome)
	}
}

func (p *printer) tools(tools []map[string]any) {
	for _, t := range tools {
		fn, _ := t["function"].(map[string]any)
		name, _ := fn["name"].(string)
		desc, _ := fn["description"].(string)
		p.ai.Fprintf(p.w, "%-24s", name)
		fmt.Fprintln(p.w, desc)
	}
}

func (p *printer) tasks(tasks []*record.TaskView) {
	for _, t := range tasks {
		c, ok := p.status[t.Status]
		if !ok {
			c = p.dim
		}
		fmt.Fprintf(p.w, "#%-4d ", t.ID)
		c.Fprintf(p.w, "%-12s", t.Status)
		fmt.Fprintf(p.w, " %s", t.Title)
		if t.Deadline != "" {
			p.dim.Fprintf(p.w, " (due %s)", t.Deadline)
		}
		if len(t.Notes) > 0 {
			p.dim.Fprintf(p.w, " [%d notes]", len(t.Notes))
		}
		fmt.Fprintln(p.w)
	}
}

func (p *printer) notes(notes []*record.NoteView) {
	for _, n := range notes {
		fmt.Fprintf(p.w, "#%-4d %s", n.ID, n.Title)
		if len(n.Tasks) > 0 {
			p.dim.Fprintf(p.w, " [%d tasks]", len(n.Tasks))
		}
		fmt.Fprintln(p.w)
		if n.Content != "" {
			p.dim.Fprintf(p.w, "      %s\n", truncate(n.Content, 100))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
