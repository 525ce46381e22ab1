package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

var errUnknownCommand = goerr.New("unknown command, type 'help' for the list of commands")

func consoleCommand() *cli.Command {
	var cfg config

	flags := append(messageFlags(&cfg), globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "console",
		Usage: "Interactive console with every page kept in sync with the selected user",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, a, err := cfg.newApp(ctx, c.Root().Writer)
			if err != nil {
				return err
			}

			sh := newShell(a, c.Root().Writer)
			sh.start(ctx)
			defer sh.unmount()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          sh.prompt(),
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          c.Root().Writer,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start console")
			}
			defer rl.Close()

			sh.home()
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				quit, err := sh.exec(ctx, line)
				if err != nil {
					a.render.Error(err)
				}
				if quit {
					return nil
				}
				rl.SetPrompt(sh.prompt())
			}
		},
	}
}

// historyFile returns the readline history path, or empty to keep history in memory
func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(filepath.Join(dir, "lifebook"), 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "lifebook", "history")
}

// shell holds the mounted pages of an interactive console
type shell struct {
	app *app
	w   io.Writer

	sessions   *page.Sessions
	memories   *page.Memories
	persons    *page.Persons
	chapters   *page.Chapters
	promptRuns *page.PromptRuns
	questions  *page.Questions
	detail     *page.SessionDetail

	current string
	spin    func(suffix string) func()
}

type shellCommand struct {
	name  string
	args  string
	usage string
	run   func(s *shell, ctx context.Context, args []string) error
}

var shellCommands = []shellCommand{
	{"home", "", "Show the selected user and the pages", (*shell).cmdHome},
	{"users", "", "List users", (*shell).cmdUsers},
	{"use", "<user-id>", "Select a user; every page reloads for them", (*shell).cmdUse},
	{"new-user", "[name]", "Create a user and select it", (*shell).cmdNewUser},
	{"sessions", "", "List sessions", (*shell).cmdSessions},
	{"new-session", "", "Create a session and open it", (*shell).cmdNewSession},
	{"open", "<session-id>", "Open the timeline of a session", (*shell).cmdOpen},
	{"send", "<text>", "Submit a message to the open session", (*shell).cmdSend},
	{"retry", "", "Submit the kept draft again", (*shell).cmdRetry},
	{"versions", "<extractor> <planner>", "Prompt versions used by send", (*shell).cmdVersions},
	{"toggle", "<run-id>", "Expand or collapse a prompt run", (*shell).cmdToggle},
	{"memories", "", "Memories per pipeline version", pageCommand("memories")},
	{"persons", "", "Persons per pipeline version", pageCommand("persons")},
	{"chapters", "", "Chapters per pipeline version", pageCommand("chapters")},
	{"prompt-runs", "", "Prompt run logs", pageCommand("prompt-runs")},
	{"questions", "", "Follow-up questions", pageCommand("questions")},
	{"filter", "[key=value ...]", "Filter the current list (session, prompt, parse_ok, model, status)", (*shell).cmdFilter},
	{"show", "<id>", "Show a record of the current list", (*shell).cmdShow},
	{"back", "", "Close the shown record", (*shell).cmdBack},
	{"merge", "<source-id> <target-id>", "Merge two persons", (*shell).cmdMerge},
	{"ask", "<question-id>", "Mark a question as asked", questionCommand(model.QuestionAsked)},
	{"dismiss", "<question-id>", "Dismiss a question", questionCommand(model.QuestionDismissed)},
	{"reload", "", "Fetch the current page again", (*shell).cmdReload},
}

func newShell(a *app, w io.Writer) *shell {
	versions := page.WithVersions(a.cfg.versions())
	return &shell{
		app:        a,
		w:          w,
		sessions:   page.NewSessions(a.store, a.backend),
		memories:   page.NewMemories(a.store, a.backend, versions),
		persons:    page.NewPersons(a.store, a.backend, versions),
		chapters:   page.NewChapters(a.store, a.backend, versions),
		promptRuns: page.NewPromptRuns(a.store, a.backend),
		questions:  page.NewQuestions(a.store, a.backend),
		current:    "home",
		spin:       startSpinner,
	}
}

func (s *shell) pages() []page.Page {
	return []page.Page{s.sessions, s.memories, s.persons, s.chapters, s.promptRuns, s.questions}
}

// start selects the first user when none is stored yet, then mounts the
// pages. A failed user listing leaves the pages waiting for a user.
func (s *shell) start(ctx context.Context) {
	if err := s.autoSelect(ctx); err != nil {
		logging.From(ctx).Warn("failed to select initial user", "error", err)
	}
	s.mount(ctx)
}

func (s *shell) autoSelect(ctx context.Context) error {
	users, err := s.app.backend.ListUsers(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list users")
	}
	_, err = s.app.store.AutoSelect(ctx, users)
	return err
}

// mount loads every user scoped page. Failures stay in the page state and
// are shown when the page is opened.
func (s *shell) mount(ctx context.Context) {
	for _, p := range s.pages() {
		_ = p.Mount(ctx)
	}
}

func (s *shell) unmount() {
	for _, p := range s.pages() {
		p.Unmount()
	}
}

func (s *shell) prompt() string {
	var b strings.Builder
	b.WriteString("lifebook")
	if id, ok := s.app.store.Get(); ok {
		fmt.Fprintf(&b, "[user %s]", id)
	}
	if s.current == "session" && s.detail != nil {
		fmt.Fprintf(&b, "[session %s]", s.detail.SessionID())
	} else if s.current != "home" {
		fmt.Fprintf(&b, "[%s]", s.current)
	}
	b.WriteString("> ")
	return b.String()
}

// exec runs one input line and reports whether the console should quit
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	name, args := fields[0], fields[1:]
	switch name {
	case "exit", "quit":
		return true, nil
	case "help":
		s.help()
		return false, nil
	}

	for _, cmd := range shellCommands {
		if cmd.name == name {
			return false, cmd.run(s, ctx, args)
		}
	}
	return false, goerr.Wrap(errUnknownCommand, name)
}

func (s *shell) help() {
	fmt.Fprintln(s.w, "Commands:")
	for _, cmd := range shellCommands {
		fmt.Fprintf(s.w, "  %-12s %-24s %s\n", cmd.name, cmd.args, cmd.usage)
	}
	fmt.Fprintf(s.w, "  %-12s %-24s %s\n", "help", "", "Show this help")
	fmt.Fprintf(s.w, "  %-12s %-24s %s\n", "exit", "", "Leave the console")
}

// show renders the current page
func (s *shell) show() {
	r := s.app.render
	switch s.current {
	case "home":
		s.home()
	case "sessions":
		r.Sessions(s.sessions.Snapshot())
	case "session":
		r.SessionDetail(s.detail)
	case "memories":
		if d := s.memories.Detail(); d.State == view.Ready {
			r.Memory(d.Data)
			return
		}
		r.Memories(s.memories.Snapshot())
	case "persons":
		if d := s.persons.Detail(); d.State != view.Idle {
			r.PersonDetail(d)
			return
		}
		r.Persons(s.persons.Snapshot())
	case "chapters":
		if d := s.chapters.Detail(); d.State != view.Idle {
			r.ChapterDetail(d)
			return
		}
		r.Chapters(s.chapters.Snapshot())
	case "prompt-runs":
		if d := s.promptRuns.Detail(); d.State == view.Ready {
			r.PromptRun(d.Data)
			return
		}
		r.PromptRuns(s.promptRuns.Snapshot())
	case "questions":
		r.Questions(s.questions.Snapshot())
	}
}

func (s *shell) home() {
	id, ok := s.app.store.Get()
	s.app.render.Home(id, ok)
}

func (s *shell) cmdHome(ctx context.Context, args []string) error {
	s.current = "home"
	s.show()
	return nil
}

func (s *shell) cmdUsers(ctx context.Context, args []string) error {
	users, err := s.app.backend.ListUsers(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list users")
	}
	selected, err := s.app.store.AutoSelect(ctx, users)
	if err != nil {
		return err
	}
	s.app.render.Users(users, selected)
	return nil
}

func (s *shell) cmdUse(ctx context.Context, args []string) error {
	id, err := idAt(args, 0, "user-id")
	if err != nil {
		return err
	}
	user, err := s.app.backend.GetUser(ctx, model.UserID(id))
	if err != nil {
		return goerr.Wrap(err, "failed to get user", goerr.V("user_id", id))
	}
	if err := s.app.store.Set(ctx, user.ID); err != nil {
		return err
	}
	s.show()
	return nil
}

func (s *shell) cmdNewUser(ctx context.Context, args []string) error {
	user, err := s.app.store.CreateAndSelect(ctx, s.app.backend, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "Created and selected user %s\n", user.ID)
	return nil
}

func (s *shell) cmdSessions(ctx context.Context, args []string) error {
	s.current = "sessions"
	s.show()
	return nil
}

func (s *shell) cmdNewSession(ctx context.Context, args []string) error {
	session, err := s.sessions.Create(ctx)
	if err != nil {
		return err
	}
	return s.open(ctx, session.ID)
}

func (s *shell) cmdOpen(ctx context.Context, args []string) error {
	id, err := idAt(args, 0, "session-id")
	if err != nil {
		return err
	}
	return s.open(ctx, model.SessionID(id))
}

func (s *shell) open(ctx context.Context, id model.SessionID) error {
	opts := s.app.cfg.messageOptions()
	if s.detail != nil {
		opts = s.detail.Versions()
	}
	s.detail = page.NewSessionDetail(s.app.backend, id, page.WithMessageOptions(opts))
	_ = s.detail.Mount(ctx)
	s.current = "session"
	s.show()
	return nil
}

func (s *shell) openSession() (*page.SessionDetail, error) {
	if s.current != "session" || s.detail == nil {
		return nil, goerr.New("no session is open, use 'open <session-id>' first")
	}
	return s.detail, nil
}

func (s *shell) cmdSend(ctx context.Context, args []string) error {
	return s.submit(ctx, strings.Join(args, " "))
}

func (s *shell) cmdRetry(ctx context.Context, args []string) error {
	p, err := s.openSession()
	if err != nil {
		return err
	}
	return s.submit(ctx, p.Draft())
}

func (s *shell) submit(ctx context.Context, text string) error {
	p, err := s.openSession()
	if err != nil {
		return err
	}

	stop := s.spin("Processing...")
	result, err := p.Submit(ctx, text)
	stop()

	if err != nil && p.SubmitError() == nil {
		return err
	}
	s.show()
	if result != nil {
		s.app.render.ProcessResult(result)
	}
	return nil
}

func (s *shell) cmdVersions(ctx context.Context, args []string) error {
	p, err := s.openSession()
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return goerr.New("usage: versions <extractor> <planner>")
	}
	if err := p.SetVersions(adapter.MessageOptions{ExtractorVersion: args[0], PlannerVersion: args[1]}); err != nil {
		return err
	}
	fmt.Fprintf(s.w, "Extractor: %s  Planner: %s\n", args[0], args[1])
	return nil
}

func (s *shell) cmdToggle(ctx context.Context, args []string) error {
	p, err := s.openSession()
	if err != nil {
		return err
	}
	id, err := idAt(args, 0, "run-id")
	if err != nil {
		return err
	}
	p.Toggle(model.PromptRunID(id))
	s.show()
	return nil
}

// pageCommand switches to a mounted list page
func pageCommand(name string) func(s *shell, ctx context.Context, args []string) error {
	return func(s *shell, ctx context.Context, args []string) error {
		s.current = name
		s.show()
		return nil
	}
}

func (s *shell) cmdReload(ctx context.Context, args []string) error {
	var err error
	switch s.current {
	case "sessions":
		err = s.sessions.Reload(ctx)
	case "session":
		err = s.detail.Reload(ctx)
	case "memories":
		err = s.memories.Reload(ctx)
	case "persons":
		err = s.persons.Reload(ctx)
	case "chapters":
		err = s.chapters.Reload(ctx)
	case "prompt-runs":
		err = s.promptRuns.Reload(ctx)
	case "questions":
		err = s.questions.Reload(ctx)
	}
	if err != nil {
		// the page shows the failure
		logging.From(ctx).Debug("reload failed", "page", s.current, "error", err)
	}
	s.show()
	return nil
}

func (s *shell) cmdShow(ctx context.Context, args []string) error {
	id, err := idAt(args, 0, "id")
	if err != nil {
		return err
	}

	switch s.current {
	case "memories":
		err = s.memories.Select(ctx, model.MemoryID(id))
	case "persons":
		_ = s.persons.Select(ctx, model.PersonID(id))
	case "chapters":
		_ = s.chapters.Select(ctx, model.ChapterID(id))
	case "prompt-runs":
		err = s.promptRuns.Select(ctx, model.PromptRunID(id))
	default:
		return goerr.New("show is available on memories, persons, chapters and prompt-runs", goerr.V("page", s.current))
	}
	if err != nil {
		return err
	}
	s.show()
	return nil
}

func (s *shell) cmdBack(ctx context.Context, args []string) error {
	switch s.current {
	case "memories":
		s.memories.ClearSelection()
	case "persons":
		s.persons.ClearSelection()
	case "chapters":
		s.chapters.ClearSelection()
	case "prompt-runs":
		s.promptRuns.ClearSelection()
	case "session":
		s.current = "sessions"
	default:
		s.current = "home"
	}
	s.show()
	return nil
}

func (s *shell) cmdMerge(ctx context.Context, args []string) error {
	source, err := idAt(args, 0, "source-id")
	if err != nil {
		return err
	}
	target, err := idAt(args, 1, "target-id")
	if err != nil {
		return err
	}

	result, err := s.persons.Merge(ctx, model.PersonID(source), model.PersonID(target))
	if err != nil {
		return err
	}
	s.app.render.MergeResult(result)
	s.current = "persons"
	s.show()
	return nil
}

func questionCommand(status model.QuestionStatus) func(s *shell, ctx context.Context, args []string) error {
	return func(s *shell, ctx context.Context, args []string) error {
		id, err := idAt(args, 0, "question-id")
		if err != nil {
			return err
		}
		if err := s.questions.SetStatus(ctx, model.QuestionID(id), status); err != nil {
			return err
		}
		s.current = "questions"
		s.show()
		return nil
	}
}

func (s *shell) cmdFilter(ctx context.Context, args []string) error {
	values := map[string]string{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return goerr.New("filter takes key=value pairs", goerr.V("arg", arg))
		}
		values[key] = value
	}

	var sessionID model.SessionID
	if v := values["session"]; v != "" {
		id, err := model.ParseID(v)
		if err != nil {
			return err
		}
		sessionID = model.SessionID(id)
	}

	var err error
	switch s.current {
	case "memories":
		err = s.memories.FilterSession(ctx, sessionID)
	case "prompt-runs":
		ok, perr := parseOK(values["parse_ok"])
		if perr != nil {
			return perr
		}
		err = s.promptRuns.SetFilter(ctx, page.PromptRunFilter{
			SessionID:  sessionID,
			PromptName: values["prompt"],
			ParseOK:    ok,
			Model:      values["model"],
		})
	case "questions":
		err = s.questions.SetFilter(ctx, page.QuestionFilter{
			SessionID: sessionID,
			Status:    model.QuestionStatus(values["status"]),
		})
	default:
		return goerr.New("filter is available on memories, prompt-runs and questions", goerr.V("page", s.current))
	}

	if err != nil && errors.Is(err, model.ErrInvalidQuestionStatus) {
		return err
	}
	s.show()
	return nil
}
