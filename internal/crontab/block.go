package crontab

import (
	"strings"
	"unicode"

	"github.com/alessio/shellescape"
)

const (
	DefaultMarker = "# TwoTokens Automation"
	DefaultToken  = "twotokens"
	taskPrefix    = "# Task:"
	executeArgs   = " task execute "
)

// Entry is one managed job reconstructed from the table.
type Entry struct {
	Name     string
	Schedule string
	Line     string
}

// Table is a parsed scheduler table: managed entries plus every other
// non-blank line in original order.
type Table struct {
	Entries []Entry
	Foreign []string
}

type parseState int

const (
	stateOutside parseState = iota
	stateExpectComment
	stateExpectCommand
)

// Layout describes how managed entries are written.
type Layout struct {
	Marker string
	Token  string
}

func (l Layout) isMarker(line string) bool {
	return strings.TrimSpace(line) == l.Marker
}

// isCommand matches the token or the subcommand CommandLine writes, so
// binaries whose path lacks the token are still recognised.
func (l Layout) isCommand(line string) bool {
	return strings.Contains(line, l.Token) || strings.Contains(line, executeArgs)
}

// Parse splits table text into managed and foreign parts. After a marker
// line it consumes an optional "# Task:" comment and then one line carrying
// the token. Anything else ends the managed group and is kept as foreign.
// Blank lines are dropped.
func (l Layout) Parse(text string) Table {
	var (
		tbl     Table
		state   = stateOutside
		current Entry
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if l.isMarker(line) {
			state = stateExpectComment
			current = Entry{}
			continue
		}
		switch state {
		case stateExpectComment:
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				if strings.HasPrefix(trimmed, taskPrefix) {
					current.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, taskPrefix))
				}
				state = stateExpectCommand
				continue
			}
			if l.isCommand(line) {
				tbl.Entries = append(tbl.Entries, commandEntry(current, line))
				state = stateOutside
				continue
			}
		case stateExpectCommand:
			if l.isCommand(line) {
				tbl.Entries = append(tbl.Entries, commandEntry(current, line))
				state = stateOutside
				continue
			}
		}
		state = stateOutside
		tbl.Foreign = append(tbl.Foreign, line)
	}
	return tbl
}

func commandEntry(e Entry, line string) Entry {
	e.Line = line
	fields := strings.Fields(line)
	if len(fields) >= 5 {
		e.Schedule = strings.Join(fields[:5], " ")
	}
	return e
}

// Job is what Render needs per managed entry.
type Job struct {
	Name     string
	Schedule string
}

// Target is the binary and document a managed line points at.
type Target struct {
	Executable string
	StorePath  string
}

// Render writes foreign lines followed by a fresh managed group per job.
// The result always ends with a newline.
func (l Layout) Render(foreign []string, jobs []Job, target Target) string {
	var sb strings.Builder
	for _, line := range foreign {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	for _, job := range jobs {
		sb.WriteString(l.Marker)
		sb.WriteByte('\n')
		sb.WriteString(taskPrefix + " " + job.Name)
		sb.WriteByte('\n')
		sb.WriteString(CommandLine(job, target))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// CommandLine is the scheduler line that runs one task. Arguments are
// shell quoted and % is escaped since cron reads it as a newline.
func CommandLine(job Job, target Target) string {
	args := []string{job.Schedule, shellescape.Quote(target.Executable)}
	if target.StorePath != "" {
		args = append(args, "--store.path", shellescape.Quote(target.StorePath))
	}
	args = append(args, "task", "execute", shellescape.Quote(job.Name))
	return strings.ReplaceAll(strings.Join(args, " "), "%", `\%`)
}

// validName rejects names that would split a table line.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
