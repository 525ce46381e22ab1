// Package render writes console pages as plain text tables.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// Renderer writes pages to w
type Renderer struct {
	w     io.Writer
	color bool
	width int
}

// Option is a functional option for Renderer
type Option func(*Renderer)

// WithColor enables or disables ANSI colors
func WithColor(enabled bool) Option {
	return func(r *Renderer) {
		r.color = enabled
	}
}

// WithWidth sets the maximum width of free text columns
func WithWidth(width int) Option {
	return func(r *Renderer) {
		r.width = width
	}
}

func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		w:     w,
		color: !color.NoColor,
		width: 60,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// Error writes the operator facing message of err. Backend errors show the
// server provided detail.
func (r *Renderer) Error(err error) {
	r.printf("%s %s\n", r.paint(color.FgRed, "Error:"), Message(err))
}

// Message returns the text shown to the operator for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := adapter.AsAPIError(err); ok {
		return apiErr.Message()
	}
	return err.Error()
}

// state writes the placeholder lines of a snapshot and reports whether the
// data should be rendered below them.
func state[T any](r *Renderer, what string, snap view.Snapshot[T]) bool {
	switch snap.State {
	case view.AwaitingUser:
		r.printf("Please select a user to view %s.\n", what)
		return false
	case view.Idle:
		return false
	case view.Loading:
		r.printf("Loading...\n")
		return snap.HasData
	case view.Failed:
		r.printf("%s failed to load %s: %s\n", r.paint(color.FgRed, "Error:"), what, Message(snap.Err))
		r.printf("Run `reload` to retry.\n")
		return snap.HasData
	default:
		return true
	}
}

type table struct {
	tw *tabwriter.Writer
}

func (r *Renderer) table(header ...string) *table {
	t := &table{tw: tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)}
	t.row(header...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() {
	_ = t.tw.Flush()
}

// versioned writes one labelled panel per pipeline version. Every panel has
// its own empty-state row.
func versioned[T any](r *Renderer, what string, data *view.Versioned[T], header []string, row func(T) []string) {
	if data == nil {
		return
	}
	for i, version := range data.Versions {
		if i > 0 {
			r.printf("\n")
		}
		items := data.Get(version)
		r.printf("== Pipeline %s (%d) ==\n", version, len(items))

		if len(items) == 0 {
			r.printf("(no %s for pipeline %s)\n", what, version)
			continue
		}
		t := r.table(header...)
		for _, item := range items {
			t.row(row(item)...)
		}
		t.flush()
	}
}

func (r *Renderer) truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r.width <= 0 || utf8.RuneCountInString(s) <= r.width {
		return s
	}
	runes := []rune(s)
	return string(runes[:r.width-1]) + "…"
}

func (r *Renderer) parseStatus(ok bool) string {
	if ok {
		return r.paint(color.FgGreen, "ok")
	}
	return r.paint(color.FgRed, "failed")
}

func (r *Renderer) questionStatus(s model.QuestionStatus) string {
	switch s {
	case model.QuestionPending:
		return r.paint(color.FgYellow, string(s))
	case model.QuestionAsked:
		return r.paint(color.FgGreen, string(s))
	default:
		return r.paint(color.FgHiBlack, string(s))
	}
}

func optional(s *string) string {
	return model.Deref(s, "-")
}

func optionalInt(v *int, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d%s", *v, unit)
}
