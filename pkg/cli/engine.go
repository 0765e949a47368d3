package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/bft-labs/lifeline/pkg/log"
)

// Option configures an Engine.
type Option func(*Engine)

// WithInput sets the command source. The default is os.Stdin.
func WithInput(r io.Reader) Option {
	return func(e *Engine) {
		e.in = r
	}
}

// WithOutput sets where summaries, help and command output go.
// The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) {
		e.logger = log.OrNoop(l)
	}
}

// WithPollInterval sets the polling reader interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithExecutorTimeout bounds each stage of executor shutdown.
func WithExecutorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.execTimeout = d
		}
	}
}

// Instance is one target's registration with the engine.
type Instance struct {
	id       int
	target   Target
	commands []Command
}

// ID returns the instance id used as the code suffix.
func (i *Instance) ID() int { return i.id }

// Target returns the registered target.
func (i *Instance) Target() Target { return i.target }

type entry struct {
	code string
	cmd  Command
	inst *Instance
}

// dispatchTable is immutable once published.
type dispatchTable struct {
	entries []entry
	byCode  map[string]entry
}

func buildTable(insts []*Instance) *dispatchTable {
	t := &dispatchTable{byCode: make(map[string]entry)}
	suffix := len(insts) > 1
	for _, inst := range insts {
		for _, cmd := range inst.commands {
			code := cmd.Code()
			if suffix {
				code += strconv.Itoa(inst.id)
			}
			if _, dup := t.byCode[code]; dup {
				continue
			}
			e := entry{code: code, cmd: cmd, inst: inst}
			t.entries = append(t.entries, e)
			t.byCode[code] = e
		}
	}
	return t
}

type session struct {
	reader    CancelReader
	exec      *Executor
	table     atomic.Pointer[dispatchTable]
	stopped   atomic.Bool
	scanDone  chan struct{}
	instances []*Instance
}

// Engine multiplexes the commands of every running instance onto one input.
// Sessions are replaced wholesale, never mutated after teardown.
type Engine struct {
	in          io.Reader
	out         io.Writer
	logger      log.Logger
	poll        time.Duration
	execTimeout time.Duration

	mu       sync.Mutex
	nextID   int
	pump     *pump
	session  atomic.Pointer[session]
	teardown conc.WaitGroup

	outMu sync.Mutex
}

// NewEngine creates an engine with no session.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		in:          os.Stdin,
		out:         os.Stdout,
		logger:      log.NoopLogger{},
		poll:        DefaultPollInterval,
		execTimeout: DefaultExecutorTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Running reports whether a session exists.
func (e *Engine) Running() bool {
	return e.session.Load() != nil
}

// Codes returns the effective command codes of the current session.
func (e *Engine) Codes() []string {
	sess := e.session.Load()
	if sess == nil {
		return nil
	}
	tbl := sess.table.Load()
	codes := make([]string, 0, len(tbl.entries))
	for _, en := range tbl.entries {
		codes = append(codes, en.code)
	}
	return codes
}

// StartInstance adds target with its commands, creating the session if
// needed, and prints the startup commands.
func (e *Engine) StartInstance(target Target, commands []Command) *Instance {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst := &Instance{id: e.nextID, target: target, commands: slices.Clone(commands)}
	e.nextID++

	sess := e.session.Load()
	created := sess == nil
	if created {
		sess = e.newSession()
	}
	wasSuffixed := len(sess.instances) > 1
	sess.instances = append(sess.instances, inst)
	tbl := buildTable(sess.instances)
	sess.table.Store(tbl)
	instances.Inc()

	if created {
		e.session.Store(sess)
		go e.scan(sess)
		e.logger.Debug("cli session started")
	}

	e.logger.Debug("cli instance added", log.Int("cli_instance", inst.id), log.Instance(target.ID()))
	if wasSuffixed == (len(sess.instances) > 1) {
		e.printSummary(tbl, inst)
	} else {
		// Earlier instances just lost their bare codes.
		e.printSummaries(tbl, sess.instances)
	}
	return inst
}

// StopInstance removes inst. Removing the last instance cancels input
// scanning and stops the executor; a later StartInstance creates a new
// session. Calling it twice is safe.
func (e *Engine) StopInstance(inst *Instance) {
	if inst == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.session.Load()
	if sess == nil {
		return
	}
	idx := slices.Index(sess.instances, inst)
	if idx < 0 {
		return
	}
	sess.instances = slices.Delete(sess.instances, idx, idx+1)
	instances.Dec()
	e.logger.Debug("cli instance removed", log.Int("cli_instance", inst.id))

	if len(sess.instances) > 0 {
		tbl := buildTable(sess.instances)
		sess.table.Store(tbl)
		if len(sess.instances) == 1 {
			e.printSummaries(tbl, sess.instances)
		}
		return
	}

	sess.stopped.Store(true)
	sess.table.Store(buildTable(nil))
	e.session.Store(nil)
	sess.reader.Cancel()

	// Runs apart from the caller, which may itself be a command on this executor.
	e.teardown.Go(func() { e.closeSession(sess) })
}

// Close stops every remaining instance and waits for session teardown.
func (e *Engine) Close(ctx context.Context) error {
	if sess := e.session.Load(); sess != nil {
		e.mu.Lock()
		insts := slices.Clone(sess.instances)
		e.mu.Unlock()
		for _, inst := range insts {
			e.StopInstance(inst)
		}
	}

	done := make(chan struct{})
	go func() {
		e.teardown.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) newSession() *session {
	sessions.Inc()
	return &session{
		reader:   e.newReader(),
		exec:     NewExecutor(e.logger),
		scanDone: make(chan struct{}),
	}
}

// newReader prefers the platform reader. Once the polling fallback is in
// use, every later session shares the same pump.
func (e *Engine) newReader() CancelReader {
	if e.pump == nil {
		if cr := platformReader(e.in); cr != nil {
			return cr
		}
		e.pump = newPump(e.in)
	}
	return newPollReader(e.pump, e.poll)
}

func (e *Engine) closeSession(sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*e.execTimeout)
	defer cancel()

	if err := sess.exec.Stop(ctx, e.execTimeout); err != nil {
		e.logger.Warn("cli executor stop failed", log.Err(err))
	}

	select {
	case <-sess.scanDone:
	case <-ctx.Done():
		e.logger.Warn("cli scanner did not exit")
	}
	if err := sess.reader.Close(); err != nil {
		e.logger.Debug("closing cli reader", log.Err(err))
	}
	e.logger.Debug("cli session stopped")
}

func (e *Engine) scan(sess *session) {
	defer close(sess.scanDone)

	sc := bufio.NewScanner(sess.reader)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == cancelLine || sess.stopped.Load() {
			return
		}
		if line == "" {
			continue
		}
		e.dispatch(sess, line)
	}
	if err := sc.Err(); err != nil && !isCancel(err) {
		e.logger.Warn("cli input failed", log.Err(err))
	}
}

func (e *Engine) dispatch(sess *session, code string) {
	if sess.stopped.Load() {
		return
	}
	tbl := sess.table.Load()
	en, ok := tbl.byCode[code]
	if !ok {
		dispatched.WithLabelValues(resultUnknown).Inc()
		e.printHelp(tbl)
		return
	}

	con := &console{engine: e, table: tbl}
	err := sess.exec.Submit(en.code, func(ctx context.Context) error {
		return en.cmd.Execute(ctx, en.inst.target, con)
	})
	if err != nil {
		dispatched.WithLabelValues(resultRejected).Inc()
		e.logger.Warn("command rejected", log.String(log.CommandKey, en.code), log.Err(err))
		return
	}
	dispatched.WithLabelValues(resultDispatched).Inc()
}

func (e *Engine) write(b []byte) (int, error) {
	e.outMu.Lock()
	defer e.outMu.Unlock()
	return e.out.Write(b)
}

func (e *Engine) printf(format string, args ...any) {
	_, _ = e.write([]byte(fmt.Sprintf(format, args...)))
}

func (e *Engine) printSummary(tbl *dispatchTable, inst *Instance) {
	var b strings.Builder
	for _, en := range tbl.entries {
		if en.inst != inst || !en.cmd.PrintOnStartup() {
			continue
		}
		fmt.Fprintf(&b, "  %-4s %s\n", en.code, en.cmd.Description(inst.target))
	}
	if b.Len() == 0 {
		return
	}
	e.printf("Commands for %s [%d]:\n%s", inst.target.Name(), inst.id, b.String())
}

func (e *Engine) printSummaries(tbl *dispatchTable, insts []*Instance) {
	for _, inst := range insts {
		e.printSummary(tbl, inst)
	}
}

func (e *Engine) printHelp(tbl *dispatchTable) {
	e.printEntries(tbl, "Available commands:", func(en entry) bool { return en.cmd.IsHelp() })
}

func (e *Engine) printEntries(tbl *dispatchTable, title string, keep func(entry) bool) {
	var b strings.Builder
	b.WriteString(title + "\n")
	for _, en := range tbl.entries {
		if keep(en) {
			fmt.Fprintf(&b, "  %-4s %s\n", en.code, en.cmd.Description(en.inst.target))
		}
	}
	_, _ = e.write([]byte(b.String()))
}

// console binds command output to the table the command was dispatched from.
type console struct {
	engine *Engine
	table  *dispatchTable
}

func (c *console) Write(b []byte) (int, error) {
	return c.engine.write(b)
}

func (c *console) PrintHelp() {
	c.engine.printHelp(c.table)
}

func (c *console) PrintCommands() {
	c.engine.printEntries(c.table, "Commands:", func(entry) bool { return true })
}
