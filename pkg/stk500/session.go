package stk500

// Phase is a step of a flash session.
type Phase int

// Phases.
const (
	PhaseIdle Phase = iota
	PhaseReset
	PhaseBootDelay
	PhaseSync
	PhaseEnterProgMode
	PhaseProgram
	PhaseVerify
	PhaseLeaveProgMode
	PhaseDone
)

var phaseNames = [...]string{"idle", "reset", "boot-delay", "sync", "enter", "program", "verify", "leave", "done"}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Progress reports a session after each page.
type Progress struct {
	Phase   Phase
	Written int
	Total   int
}

// ProgressFunc receives Progress.
type ProgressFunc func(Progress)

// Session is one firmware update in flight.
type Session struct {
	Image        []byte
	StartAddress uint32
	Offset       int
	SyncAttempts int
	Phase        Phase
}

// Total returns the image size.
func (s *Session) Total() int {
	return len(s.Image)
}

func (s *Session) page(pageSize int) (addr uint32, data []byte) {
	end := s.Offset + pageSize
	if end > len(s.Image) {
		end = len(s.Image)
	}
	return s.StartAddress + uint32(s.Offset), s.Image[s.Offset:end]
}

// Result is the outcome of a session.
type Result struct {
	Err          error
	Phase        Phase
	Written      int
	SyncAttempts int
}

// OK tells whether the session succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
