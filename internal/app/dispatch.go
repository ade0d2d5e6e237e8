package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"clawtui/internal/sessionsync"
)

// dispatchMsg carries a synchronizer closure into Update so that all session
// state is mutated on the program goroutine.
type dispatchMsg func()

// programDispatcher queues closures until a program is attached, then hands
// them to it in order. Post never blocks the caller, which matters because
// closures are often posted from inside Update.
type programDispatcher struct {
	loop    *sessionsync.Loop
	program *tea.Program
}

var _ sessionsync.Dispatcher = (*programDispatcher)(nil)

func newProgramDispatcher() *programDispatcher {
	d := &programDispatcher{}
	d.loop = sessionsync.NewLoopWithExecutor(func(fn func()) {
		d.program.Send(dispatchMsg(fn))
	})
	return d
}

func (d *programDispatcher) Post(fn func()) bool {
	return d.loop.Post(fn)
}

// attach must be called once, before the program runs.
func (d *programDispatcher) attach(p *tea.Program) {
	d.program = p
	d.loop.Start()
}

// Close drains the queue. Once the program has exited Send returns
// immediately, so remaining closures are dropped.
func (d *programDispatcher) Close() {
	d.loop.Close()
}
