package proc

import (
	"io"
	"os"
	"os/exec"
	"sync"
)

// FakeSpawner records spawned commands and hands out FakeHandles whose
// lifetime is controlled by the caller.
type FakeSpawner struct {
	mu      sync.Mutex
	missing map[string]bool
	spawned []*FakeHandle
	maxLive int
	nextPid int

	// SpawnErr, when set, is returned by the next Spawn calls.
	SpawnErr error
	// HoldOnKill keeps killed handles alive until Finish is called,
	// so tests can decide which exit the observer sees.
	HoldOnKill bool
}

func NewFakeSpawner() *FakeSpawner {
	return &FakeSpawner{missing: make(map[string]bool), nextPid: 1000}
}

// SetMissing makes LookPath fail for file.
func (f *FakeSpawner) SetMissing(file string, missing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[file] = missing
}

func (f *FakeSpawner) LookPath(file string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[file] {
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + file, nil
}

func (f *FakeSpawner) Spawn(cmd Command) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SpawnErr != nil {
		return nil, f.SpawnErr
	}

	var stdin []byte
	if cmd.Stdin != nil {
		stdin, _ = io.ReadAll(cmd.Stdin)
	}
	f.nextPid++
	h := &FakeHandle{
		Cmd:   cmd,
		Stdin: stdin,
		pid:   f.nextPid,
		hold:  f.HoldOnKill,
		done:  make(chan struct{}),
	}
	f.spawned = append(f.spawned, h)

	live := 0
	for _, s := range f.spawned {
		if Alive(s) {
			live++
		}
	}
	if live > f.maxLive {
		f.maxLive = live
	}
	return h, nil
}

// Spawned returns every handle created so far, oldest first.
func (f *FakeSpawner) Spawned() []*FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeHandle(nil), f.spawned...)
}

func (f *FakeSpawner) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawned)
}

// Last returns the most recent handle or nil.
func (f *FakeSpawner) Last() *FakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.spawned) == 0 {
		return nil
	}
	return f.spawned[len(f.spawned)-1]
}

// MaxLive is the highest number of simultaneously live handles observed
// at spawn time.
func (f *FakeSpawner) MaxLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}

// Live counts handles that have not finished.
func (f *FakeSpawner) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.spawned {
		if Alive(h) {
			n++
		}
	}
	return n
}

type FakeHandle struct {
	Cmd   Command
	Stdin []byte

	pid  int
	hold bool

	mu         sync.Mutex
	interrupts int
	kills      int
	once       sync.Once
	done       chan struct{}
	exit       Exit
}

func (h *FakeHandle) Pid() int { return h.pid }

func (h *FakeHandle) Done() <-chan struct{} { return h.done }

func (h *FakeHandle) Exit() Exit {
	<-h.done
	return h.exit
}

// Finish ends the process with ex. Only the first call has an effect.
func (h *FakeHandle) Finish(ex Exit) {
	h.once.Do(func() {
		h.exit = ex
		close(h.done)
	})
}

func (h *FakeHandle) Interrupt() error {
	h.mu.Lock()
	h.interrupts++
	h.mu.Unlock()
	return nil
}

func (h *FakeHandle) Kill() error {
	h.mu.Lock()
	h.kills++
	h.mu.Unlock()
	if !h.hold {
		h.Finish(Exit{Code: -1, Signal: os.Kill})
	}
	return nil
}

func (h *FakeHandle) Interrupts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupts
}

func (h *FakeHandle) Kills() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}
