package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// NoSystemPrompt is shown for runs logged without a system prompt
const NoSystemPrompt = "(no system prompt recorded)"

// Section is an entry of the home page
type Section struct {
	Command     string
	Description string
}

// Sections lists the console pages
var Sections = []Section{
	{"users", "List, create and select users"},
	{"sessions", "Conversation sessions and message submission"},
	{"memories", "Extracted memories per pipeline version"},
	{"persons", "Detected persons and their memories"},
	{"chapters", "Biography chapters with coverage"},
	{"prompt-runs", "Raw prompt and response logs"},
	{"questions", "Follow-up questions and their status"},
}

// Home writes the navigation listing
func (r *Renderer) Home(selected model.UserID, ok bool) {
	r.printf("LifeBook console\n")
	if ok {
		r.printf("Selected user: %s\n\n", selected)
	} else {
		r.printf("No user selected\n\n")
	}
	t := r.table("COMMAND", "DESCRIPTION")
	for _, s := range Sections {
		t.row(s.Command, s.Description)
	}
	t.flush()
}

func (r *Renderer) Users(users []*model.User, selected model.UserID) {
	if len(users) == 0 {
		r.printf("(no users)\n")
		return
	}
	t := r.table("", "ID", "NAME", "LOCALE", "CREATED")
	for _, u := range users {
		mark := ""
		if u.ID == selected {
			mark = "*"
		}
		t.row(mark, u.ID.String(), u.Name, u.Locale, u.CreatedAt.Display())
	}
	t.flush()
}

func (r *Renderer) Sessions(snap view.Snapshot[[]*model.Session]) {
	if !state(r, "sessions", snap) {
		return
	}
	if len(snap.Data) == 0 {
		r.printf("(no sessions)\n")
		return
	}
	t := r.table("ID", "USER", "CREATED")
	for _, s := range snap.Data {
		t.row(s.ID.String(), s.UserID.String(), s.CreatedAt.Display())
	}
	t.flush()
}

// SessionDetail writes the timeline of a session. Expanded runs show their
// prompt and structured input and output.
func (r *Renderer) SessionDetail(p *page.SessionDetail) {
	r.printf("Session %s\n", p.SessionID())
	versions := p.Versions()
	r.printf("Extractor: %s  Planner: %s\n\n",
		orDefault(versions.ExtractorVersion, model.LatestExtractorVersion),
		orDefault(versions.PlannerVersion, model.LatestPlannerVersion))

	snap := p.Snapshot()
	if state(r, "messages", snap) {
		if len(snap.Data) == 0 {
			r.printf("(no messages)\n")
		}
		for _, entry := range snap.Data {
			r.timelineEntry(p, entry)
		}
	}

	if err := p.SubmitError(); err != nil {
		r.printf("\n")
		r.Error(err)
		if draft := p.Draft(); draft != "" {
			r.printf("Draft kept for retry: %s\n", draft)
		}
	}
}

func (r *Renderer) timelineEntry(p *page.SessionDetail, entry page.TimelineEntry) {
	msg := entry.Message
	r.printf("[%s] #%s %s\n", msg.Role, msg.ID, msg.CreatedAt.Display())
	r.printf("  %s\n", msg.ContentText)

	for _, run := range entry.Runs {
		marker := "+"
		if p.Expanded(run.ID) {
			marker = "-"
		}
		r.printf("  %s run #%s %s %s %s %s %s\n",
			marker, run.ID, run.PromptName, run.PromptVersion, run.Model,
			r.parseStatus(run.ParseOK), optionalInt(run.LatencyMS, "ms"))
		if p.Expanded(run.ID) {
			r.runBody(run, "      ")
		}
	}
	r.printf("\n")
}

func (r *Renderer) runBody(run *model.PromptRun, indent string) {
	if prompt, ok := run.SystemPrompt(); ok {
		r.printf("%ssystem prompt:\n%s\n", indent, indentLines(prompt, indent+"  "))
	} else {
		r.printf("%ssystem prompt: %s\n", indent, NoSystemPrompt)
	}
	if text, ok := run.PromptText(); ok {
		r.printf("%sprompt:\n%s\n", indent, indentLines(text, indent+"  "))
	}
	r.printf("%sinput:\n%s\n", indent, indentLines(prettyJSON(run.InputJSON), indent+"  "))
	if run.OutputText != nil {
		r.printf("%soutput text:\n%s\n", indent, indentLines(*run.OutputText, indent+"  "))
	}
	r.printf("%soutput:\n%s\n", indent, indentLines(prettyJSON(run.OutputJSON), indent+"  "))
	if run.ErrorText != nil {
		r.printf("%serror: %s\n", indent, *run.ErrorText)
	}
}

// ProcessResult writes the outcome of a submitted message
func (r *Renderer) ProcessResult(res *model.ProcessResult) {
	r.printf("Message #%s processed: %d memories, %d persons, %d chapters created\n",
		res.MessageID, res.MemoriesCreated, res.PersonsCreated, res.ChaptersCreated)
}

func (r *Renderer) Memories(snap view.Snapshot[*view.Versioned[*model.Memory]]) {
	if !state(r, "memories", snap) {
		return
	}
	versioned(r, "memories", snap.Data, []string{"ID", "SESSION", "SUMMARY", "TIME", "LOCATION", "IMPORTANCE"},
		func(m *model.Memory) []string {
			return []string{
				m.ID.String(),
				m.SessionID.String(),
				r.truncate(m.Summary),
				optional(m.TimeText),
				optional(m.LocationText),
				fmt.Sprintf("%.2f", m.ImportanceScore),
			}
		})
}

func (r *Renderer) Memory(m *model.Memory) {
	t := r.table("FIELD", "VALUE")
	t.row("id", m.ID.String())
	t.row("session", m.SessionID.String())
	t.row("source message", m.SourceMessageID.String())
	t.row("pipeline", orDefault(string(m.PipelineVersion), "-"))
	t.row("summary", m.Summary)
	t.row("time", optional(m.TimeText))
	t.row("location", optional(m.LocationText))
	t.row("topics", orDefault(m.TopicList(), "-"))
	t.row("importance", fmt.Sprintf("%.2f", m.ImportanceScore))
	t.row("created", m.CreatedAt.Display())
	t.flush()
	r.printf("\n%s\n", m.Narrative)
}

func (r *Renderer) memoryList(memories []*model.Memory) {
	if len(memories) == 0 {
		r.printf("(no memories)\n")
		return
	}
	t := r.table("ID", "SUMMARY")
	for _, m := range memories {
		t.row(m.ID.String(), r.truncate(m.Summary))
	}
	t.flush()
}

func (r *Renderer) Persons(snap view.Snapshot[*view.Versioned[*model.Person]]) {
	if !state(r, "persons", snap) {
		return
	}
	versioned(r, "persons", snap.Data, []string{"ID", "NAME", "TYPE", "FIRST SEEN", "NOTES"},
		func(p *model.Person) []string {
			firstSeen := "-"
			if p.FirstSeenMemoryID != nil {
				firstSeen = p.FirstSeenMemoryID.String()
			}
			return []string{p.ID.String(), p.DisplayName, p.Type, firstSeen, r.truncate(optional(p.Notes))}
		})
}

func (r *Renderer) PersonDetail(snap view.Snapshot[*page.PersonDetail]) {
	if !state(r, "person", snap) || snap.Data == nil {
		return
	}
	if p := snap.Data.Person; p != nil {
		r.printf("%s (#%s, %s)\n", p.DisplayName, p.ID, p.Type)
		if p.Notes != nil {
			r.printf("%s\n", *p.Notes)
		}
	}
	r.printf("\nRelated memories:\n")
	r.memoryList(snap.Data.Memories)
}

func (r *Renderer) MergeResult(res *model.MergeResult) {
	r.printf("%s\n", r.paint(color.FgGreen, res.Message))
}

func (r *Renderer) Chapters(snap view.Snapshot[*view.Versioned[*model.Chapter]]) {
	if !state(r, "chapters", snap) {
		return
	}
	versioned(r, "chapters", snap.Data, []string{"#", "ID", "TITLE", "PERIOD", "STATUS"},
		func(c *model.Chapter) []string {
			return []string{fmt.Sprint(c.OrderIndex), c.ID.String(), c.Title, optional(c.PeriodText), c.Status}
		})
}

func (r *Renderer) ChapterDetail(snap view.Snapshot[*page.ChapterDetail]) {
	if !state(r, "chapter", snap) || snap.Data == nil {
		return
	}
	if c := snap.Data.Chapter; c != nil {
		r.printf("%s (#%s, %s)\n", c.Title, c.ID, optional(c.PeriodText))
	}
	if cov := snap.Data.Coverage; cov != nil {
		r.printf("Coverage: %d of %d memories (%.1f%%)\n", cov.ChapterMemories, cov.TotalMemories, cov.CoveragePercent)
	}
	r.printf("\nLinked memories:\n")
	r.memoryList(snap.Data.Memories)
}

func (r *Renderer) PromptRuns(snap view.Snapshot[[]*model.PromptRun]) {
	if !state(r, "prompt runs", snap) {
		return
	}
	if len(snap.Data) == 0 {
		r.printf("(no prompt runs)\n")
		return
	}
	t := r.table("ID", "SESSION", "MESSAGE", "PROMPT", "VERSION", "MODEL", "PARSE", "TOKENS", "LATENCY", "CREATED")
	for _, run := range snap.Data {
		message := "-"
		if run.MessageID != nil {
			message = run.MessageID.String()
		}
		t.row(
			run.ID.String(),
			run.SessionID.String(),
			message,
			run.PromptName,
			run.PromptVersion,
			run.Model,
			r.parseStatus(run.ParseOK),
			optionalInt(run.TokenIn, "")+"/"+optionalInt(run.TokenOut, ""),
			optionalInt(run.LatencyMS, "ms"),
			run.CreatedAt.Display(),
		)
	}
	t.flush()
}

func (r *Renderer) PromptRun(run *model.PromptRun) {
	t := r.table("FIELD", "VALUE")
	t.row("id", run.ID.String())
	t.row("session", run.SessionID.String())
	t.row("prompt", run.PromptName+" "+run.PromptVersion)
	t.row("model", run.Model)
	t.row("parse", r.parseStatus(run.ParseOK))
	t.row("tokens", optionalInt(run.TokenIn, "")+" in / "+optionalInt(run.TokenOut, "")+" out")
	t.row("latency", optionalInt(run.LatencyMS, "ms"))
	t.row("created", run.CreatedAt.Display())
	t.flush()
	r.printf("\n")
	r.runBody(run, "")
}

func (r *Renderer) Questions(snap view.Snapshot[[]*model.Question]) {
	if !state(r, "questions", snap) {
		return
	}
	if len(snap.Data) == 0 {
		r.printf("(no questions)\n")
		return
	}
	t := r.table("ID", "SESSION", "STATUS", "CONFIDENCE", "TARGET", "QUESTION")
	for _, q := range snap.Data {
		target := q.TargetType
		if q.TargetRef != nil {
			target += ":" + *q.TargetRef
		}
		t.row(
			q.ID.String(),
			q.SessionID.String(),
			r.questionStatus(q.Status),
			fmt.Sprintf("%.2f", q.Confidence),
			target,
			r.truncate(q.QuestionText),
		)
	}
	t.flush()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func indentLines(s, indent string) string {
	var buf bytes.Buffer
	for i, line := range bytes.Split([]byte(s), []byte("\n")) {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(indent)
		buf.Write(line)
	}
	return buf.String()
}
