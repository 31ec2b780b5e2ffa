package shell

import (
	"strconv"
	"strings"

	"github.com/xtxerr/rrdb/internal/errors"
)

// Command names a database operation.
type Command string

const (
	CmdCreate Command = "create"
	CmdUpdate Command = "update"
	CmdFetch  Command = "fetch"
	CmdInfo   Command = "info"
	CmdExport Command = "export"
)

// Commands lists every command in help order.
var Commands = []Command{CmdCreate, CmdUpdate, CmdFetch, CmdInfo, CmdExport}

// ParseCommand parses a command name (case-insensitive).
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Commands {
		if c == known {
			return c, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownCommand, "%q", s)
}

// Usage returns the argument synopsis of c.
func (c Command) Usage() string {
	switch c {
	case CmdCreate:
		return "create <file> <setcount> <samplecount> [xforms]"
	case CmdUpdate:
		return "update <file> <v0[:v1...]>"
	case CmdFetch:
		return "fetch <file> [xform index]"
	case CmdInfo:
		return "info <file>"
	case CmdExport:
		return "export <file> [outdir]"
	default:
		return string(c)
	}
}

// Writes reports whether c replaces the database file.
func (c Command) Writes() bool {
	return c == CmdCreate || c == CmdUpdate
}

// Request is one parsed command with its arguments.
type Request struct {
	Command Command
	File    string

	// create
	DatasetCount int
	SampleCount  int
	Transforms   string
	Retention    int

	// update
	Values string

	// fetch; HasIndex is false for a raw fetch
	Index    int
	HasIndex bool

	// export
	OutDir string
}

// ParseLine parses a pipe-mode line: "command filename args...".
//
//	create test.rrdb 1 500 RRDBCOUNT:ONEDAY:RRDBSUM:FIVEMINUTE:0
//	update test.rrdb 4643
//	fetch test.rrdb 0
func ParseLine(line string) (*Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.NewInvalidValue("command", "", "empty line")
	}

	cmd, err := ParseCommand(fields[0])
	if err != nil {
		return nil, err
	}
	if len(fields) < 2 {
		return nil, errors.NewInvalidValue("command", line, "usage: "+cmd.Usage())
	}

	req := &Request{Command: cmd, File: fields[1]}
	args := fields[2:]

	var maxArgs int
	switch cmd {
	case CmdCreate:
		maxArgs = 3
		if len(args) < 2 {
			return nil, errors.NewInvalidValue("command", line, "usage: "+cmd.Usage())
		}
		if req.DatasetCount, err = parseInt("setcount", args[0]); err != nil {
			return nil, err
		}
		if req.SampleCount, err = parseInt("samplecount", args[1]); err != nil {
			return nil, err
		}
		if len(args) > 2 {
			req.Transforms = args[2]
		}
	case CmdUpdate:
		maxArgs = 1
		if len(args) < 1 {
			return nil, errors.NewInvalidValue("command", line, "usage: "+cmd.Usage())
		}
		req.Values = args[0]
	case CmdFetch:
		maxArgs = 1
		if len(args) > 0 {
			if req.Index, err = parseInt("xform", args[0]); err != nil {
				return nil, err
			}
			req.HasIndex = true
		}
	case CmdInfo:
		maxArgs = 0
	case CmdExport:
		maxArgs = 1
		if len(args) > 0 {
			req.OutDir = args[0]
		}
	}

	if len(args) > maxArgs {
		return nil, errors.NewInvalidValue("argument", args[maxArgs], "unexpected; usage: "+cmd.Usage())
	}
	return req, nil
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidValue(field, s, "not an integer")
	}
	return n, nil
}
