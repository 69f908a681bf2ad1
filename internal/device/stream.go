package device

import "fmt"

// Stream couples a command queue with the engine that owns it.
// Dispatch resolves both from the stream at submission time.
type Stream struct {
	eng *Engine
	q   *Queue
}

func NewStream(eng *Engine) (*Stream, error) {
	if eng == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidArg)
	}
	s := &Stream{eng: eng, q: NewQueue()}
	eng.addStream(s)
	return s, nil
}

func (s *Stream) Engine() *Engine { return s.eng }
func (s *Stream) Queue() *Queue   { return s.q }

// Wait blocks until all work submitted to this stream has completed.
func (s *Stream) Wait() { s.q.Wait() }

// Close drains and shuts down the stream's queue.
func (s *Stream) Close() { s.q.Close() }
