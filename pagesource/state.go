package pagesource

type State int

const (
	// StateIdle means nothing was fetched yet and the remote statement isn't exhausted.
	StateIdle State = iota
	// StateProducing means the queue is empty and the remote statement may yield more batches.
	StateProducing
	// StateDraining means fetched batches are queued and are served before any further pull.
	StateDraining
	// StateFinished is terminal: the queue is empty and the remote statement is exhausted.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProducing:
		return "producing"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	}
	panic("impossible, state switch bug")
}
