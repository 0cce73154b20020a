package controller

// ReplayState state of the replay machine.
type ReplayState int

const (
	ReplayIdle ReplayState = iota
	ReplayPlaying
)

// String returns a human-readable representation.
func (s ReplayState) String() string {
	if s == ReplayPlaying {
		return "playing"
	}
	return "idle"
}

// replayMachine walks a captured list of times. cancel is non-nil iff the state is playing.
// Every run gets a new generation so ticks from a cancelled run are ignored.
type replayMachine struct {
	state  ReplayState
	cancel func()
	gen    uint64
	times  []string
	cursor int
}

// start moves Idle -> Playing over a copy of times. arm receives the run generation
// and returns the timer cancel handle. It reports false when the machine did not start.
func (r *replayMachine) start(times []string, arm func(gen uint64) func()) bool {
	if r.state == ReplayPlaying || len(times) < 2 {
		return false
	}

	r.gen++
	r.times = append([]string(nil), times...)
	r.cursor = 0
	r.state = ReplayPlaying
	r.cancel = arm(r.gen)

	return true
}

// advance returns the time to select on a tick of run gen. After handing out the
// last time the machine stops itself.
func (r *replayMachine) advance(gen uint64) (string, bool) {
	if r.state != ReplayPlaying || gen != r.gen {
		return "", false
	}
	if r.cursor >= len(r.times) {
		r.stop()
		return "", false
	}

	t := r.times[r.cursor]
	r.cursor++
	if r.cursor >= len(r.times) {
		r.stop()
	}

	return t, true
}

// stop moves to Idle. Calling it while idle does nothing.
func (r *replayMachine) stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.state = ReplayIdle
}
