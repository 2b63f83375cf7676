package command

// Session is the per-connection state commands may read or change. A
// Session belongs to one connection goroutine and is not safe for
// concurrent use.
type Session struct {
	ID   int64
	Addr string

	name      string
	libName   string
	libVer    string
	closing   bool
	scripting bool
}

// NewSession creates the state for a new connection
func NewSession(id int64, addr string) *Session {
	return &Session{ID: id, Addr: addr}
}

// Name returns the name set with CLIENT SETNAME
func (s *Session) Name() string {
	return s.name
}

// Closing reports whether the connection should be closed once the
// current reply has been written (after QUIT).
func (s *Session) Closing() bool {
	return s.closing
}
