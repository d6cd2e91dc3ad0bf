package stream

// State tracks a stream through one volume.
type State uint8

const (
	NotStarted State = iota
	HeaderDone       // header and extended header written or read
	SliceLoop        // processing slices in order
	Done
	Failed // any error; the stream accepts no further work
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case HeaderDone:
		return "header-done"
	case SliceLoop:
		return "slice-loop"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}
