package driver

import "fmt"

// CompileError reports a parse or codegen failure attributed to a source
// location. The message payload comes from the compiler core; the driver
// only guarantees the path names the unit whose source was open when the
// failure occurred.
type CompileError struct {
	Path string
	Line int
	Col  int
	Msg  string
	Err  error
}

func (e *CompileError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Col > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Col)
		}
	}
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %s: %v", loc, e.Msg, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
