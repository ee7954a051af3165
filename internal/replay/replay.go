// Package replay drives a kv.Engine from a line-oriented script.
//
// Each non-blank line that does not start with '#' is one operation:
//
//	put K V     insert or overwrite
//	putnx K V   insert only if absent
//	set K V     update only if present
//	get K       read and touch
//	peek K      read without touching
//	del K       remove
//	len | used | keys
//
// V is the rest of the line after K and may be empty or contain spaces.
package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ryandielhenn/bytelru/pkg/kv"
)

// ParseError reports a malformed script line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Stats summarizes a run.
type Stats struct {
	Ops    int
	Failed int
}

type Runner struct {
	e   kv.Engine
	log *zap.Logger
}

func NewRunner(e kv.Engine, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{e: e, log: log}
}

// Run executes every operation in r and writes one result line per operation
// to w. Store errors are reported inline as "ERR ..." and do not stop the run;
// a malformed line does.
func (rn *Runner) Run(r io.Reader, w io.Writer) (Stats, error) {
	var st Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	bw := bufio.NewWriter(w)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		out, err := rn.exec(line, lineNo)
		var pe *ParseError
		if errors.As(err, &pe) {
			_ = bw.Flush()
			return st, pe
		}
		st.Ops++
		if err != nil {
			st.Failed++
			rn.log.Debug("operation failed", zap.Int("line", lineNo), zap.Error(err))
			out = "ERR " + err.Error()
		}
		if _, err := fmt.Fprintln(bw, out); err != nil {
			return st, err
		}
	}
	if err := sc.Err(); err != nil {
		_ = bw.Flush()
		return st, fmt.Errorf("read script: %w", err)
	}
	return st, bw.Flush()
}

func (rn *Runner) exec(line string, lineNo int) (string, error) {
	cmd, rest := cutSpace(strings.TrimLeft(line, " \t"))
	rest = strings.TrimLeft(rest, " \t")
	key, val := cutSpace(rest)
	// only put-style verbs keep trailing blanks, as part of the value
	hasVal := strings.TrimSpace(val) != ""

	needKey := func() error {
		if key == "" {
			return &ParseError{Line: lineNo, Msg: cmd + ": missing key"}
		}
		return nil
	}
	keyOnly := func() error {
		if err := needKey(); err != nil {
			return err
		}
		if hasVal {
			return &ParseError{Line: lineNo, Msg: cmd + ": unexpected value"}
		}
		return nil
	}
	noArgs := func() error {
		if strings.TrimSpace(rest) != "" {
			return &ParseError{Line: lineNo, Msg: cmd + ": takes no arguments"}
		}
		return nil
	}

	switch strings.ToLower(cmd) {
	case "put":
		if err := needKey(); err != nil {
			return "", err
		}
		return "OK", rn.e.Put(key, []byte(val))
	case "putnx":
		if err := needKey(); err != nil {
			return "", err
		}
		return "OK", rn.e.PutIfAbsent(key, []byte(val))
	case "set":
		if err := needKey(); err != nil {
			return "", err
		}
		return "OK", rn.e.Set(key, []byte(val))
	case "get":
		if err := keyOnly(); err != nil {
			return "", err
		}
		v, err := rn.e.Get(key)
		return "VALUE " + string(v), err
	case "peek":
		if err := keyOnly(); err != nil {
			return "", err
		}
		v, err := rn.e.Peek(key)
		return "VALUE " + string(v), err
	case "del":
		if err := keyOnly(); err != nil {
			return "", err
		}
		return "OK", rn.e.Delete(key)
	case "len":
		if err := noArgs(); err != nil {
			return "", err
		}
		return strconv.Itoa(rn.e.Len()), nil
	case "used":
		if err := noArgs(); err != nil {
			return "", err
		}
		return strconv.Itoa(rn.e.Used()), nil
	case "keys":
		if err := noArgs(); err != nil {
			return "", err
		}
		return strings.Join(rn.e.Keys(), " "), nil
	default:
		return "", &ParseError{Line: lineNo, Msg: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// cutSpace splits s around the first space or tab. The remainder is kept
// verbatim so values may carry their own spacing.
func cutSpace(s string) (before, after string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}
