package ahocorasick

import "github.com/endorses/stringmatch/internal/pkg/pattern"

// MachineStats counts the transitions taken while matching. It is
// diagnostic only and owned by the caller of Scan.
type MachineStats struct {
	// Gotos is the number of explicit transitions taken.
	Gotos uint64

	// Failures is the number of failure links followed, including fallbacks
	// to the root row of a TableMachine.
	Failures uint64
}

// Add accumulates o into s.
func (s *MachineStats) Add(o MachineStats) {
	s.Gotos += o.Gotos
	s.Failures += o.Failures
}

// Mode selects how much of the input a scan reports.
type Mode int

const (
	// ModeAll reports every pattern occurrence.
	ModeAll Mode = iota

	// ModeAny stops at the first match state.
	ModeAny

	// ModeFirst stops at the first match state and reports the first output
	// of that state.
	ModeFirst
)

// ScanOptions configures a single scan.
type ScanOptions struct {
	Mode Mode

	// Resume starts the scan from Start instead of the root, continuing a
	// previous scan of a split input. Start should be the LastState of that
	// scan; a state the machine does not have starts at the root.
	Resume bool
	Start  State

	// Stats receives transition counts when set.
	Stats *MachineStats

	// Visits, when at least NumStates long, counts every state entered.
	Visits []uint64
}

// ScanResult is the outcome of a scan.
type ScanResult struct {
	// Matches is the number of events found.
	Matches int

	// LastState is where the scan stopped; pass it as Start to resume.
	LastState State

	// Events holds the reported occurrences in input order.
	Events []MatchEvent

	// UncommonRate is the fraction of bytes consumed from uncommon states of
	// a TableMachine. Always zero for other machines.
	UncommonRate float64

	// Heavy is set when UncommonRate exceeds the machine's limit.
	Heavy bool

	// LastRootIndex is the last input index after which the scan was at the
	// root, or -1.
	LastRootIndex int
}

// Matched reports whether at least one pattern was found.
func (r ScanResult) Matched() bool {
	return r.Matches > 0
}

// Scan walks input through m one byte at a time. The machine is only read,
// so concurrent scans over the same machine are safe as long as Stats and
// Visits are not shared.
func Scan(m Machine, input []byte, opts ScanOptions) ScanResult {
	if tm, ok := m.(*TableMachine); ok {
		return tm.scan(input, opts)
	}

	state := startState(m, opts)
	root := m.Root()
	visits := opts.Visits
	if len(visits) < m.NumStates() {
		visits = nil
	}
	if visits != nil {
		visits[state]++
	}

	var stats MachineStats
	res := ScanResult{LastRootIndex: -1}
	for i, b := range input {
		state = m.Step(state, b, &stats)
		if visits != nil {
			visits[state]++
		}
		if state == root {
			res.LastRootIndex = i
		}
		if m.IsMatch(state) && res.emit(m.Outputs(state), i+1, opts.Mode) {
			break
		}
	}

	res.LastState = state
	if opts.Stats != nil {
		opts.Stats.Add(stats)
	}
	return res
}

// startState returns the state a scan begins in.
func startState(m Machine, opts ScanOptions) State {
	if opts.Resume && opts.Start >= 0 && int(opts.Start) < m.NumStates() {
		return opts.Start
	}
	return m.Root()
}

// emit records the outputs of a match state and reports whether the scan
// should stop.
func (r *ScanResult) emit(outputs []pattern.ID, end int, mode Mode) bool {
	if mode != ModeAll {
		r.Matches = 1
		r.Events = append(r.Events, MatchEvent{PatternID: outputs[0], End: end})
		return true
	}
	for _, id := range outputs {
		r.Events = append(r.Events, MatchEvent{PatternID: id, End: end})
	}
	r.Matches += len(outputs)
	return false
}
