package core

// Directory maps usernames to live sessions. Like the Registry it is
// unsynchronized and owned by the hub.
type Directory struct {
	sessions map[string]*Session
}

func NewDirectory() *Directory {
	return &Directory{sessions: make(map[string]*Session)}
}

// Register claims a username. An existing entry is never overwritten.
func (d *Directory) Register(name string, s *Session) error {
	if _, taken := d.sessions[name]; taken {
		return ErrNameTaken
	}
	d.sessions[name] = s
	return nil
}

// Unregister releases a username. Idempotent.
func (d *Directory) Unregister(name string) {
	delete(d.sessions, name)
}

// Lookup resolves a username to its session.
func (d *Directory) Lookup(name string) (*Session, bool) {
	s, ok := d.sessions[name]
	return s, ok
}

// Each visits every registered session.
func (d *Directory) Each(fn func(*Session)) {
	for _, s := range d.sessions {
		fn(s)
	}
}

// Len reports the number of registered sessions.
func (d *Directory) Len() int {
	return len(d.sessions)
}
