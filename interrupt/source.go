package interrupt

import (
	"bufio"
	"io"
	"strings"

	"github.com/hupe1980/crewsim/core"
)

// ChannelSource adapts a plain directive channel, for programmatic control
// and tests.
type ChannelSource struct {
	ch chan core.Directive
}

var _ Source = (*ChannelSource)(nil)

// NewChannelSource returns a buffered programmatic source.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan core.Directive, buffer)}
}

// Send queues a directive. It blocks if the buffer is full.
func (s *ChannelSource) Send(d core.Directive) { s.ch <- d }

// Directives implements Source.
func (s *ChannelSource) Directives() <-chan core.Directive { return s.ch }

// Close implements Source.
func (s *ChannelSource) Close() error {
	close(s.ch)
	return nil
}

// ReaderSource parses line-oriented operator commands from a reader, one
// directive per line:
//
//	pause | stop | interrupt
//	resume | continue
//	redirect <message> | steer <message>
//	terminate | end | quit | exit
//	status
//
// Unrecognized lines are dropped silently.
type ReaderSource struct {
	r  io.Reader
	ch chan core.Directive
}

var _ Source = (*ReaderSource)(nil)

// NewReaderSource starts reading directives from r. Reading stops at EOF or
// on read error; the directive channel is closed when it does.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{r: r, ch: make(chan core.Directive, 8)}
	go s.scan()
	return s
}

func (s *ReaderSource) scan() {
	defer close(s.ch)
	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		d, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		s.ch <- d
	}
}

// Directives implements Source.
func (s *ReaderSource) Directives() <-chan core.Directive { return s.ch }

// Close implements Source. Closing the underlying reader, if it is closable,
// stops the scan loop.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ParseLine converts one command line into a directive.
func ParseLine(line string) (core.Directive, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return core.Directive{}, false
	}
	cmd := strings.ToLower(fields[0])
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "pause", "stop", "interrupt":
		return core.NewDirective(core.DirectivePause, ""), true
	case "resume", "continue":
		return core.NewDirective(core.DirectiveResume, ""), true
	case "redirect", "steer":
		return core.NewDirective(core.DirectiveRedirect, rest), true
	case "terminate", "end", "quit", "exit":
		return core.NewDirective(core.DirectiveTerminate, ""), true
	case "status":
		return core.NewDirective(core.DirectiveStatus, ""), true
	}
	return core.Directive{}, false
}
