package client

// SessionState is one session's entry in a Snapshot.
type SessionState struct {
	UserID string
	Ready  bool
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Current  string
	Sessions []SessionState
	// Configured is true once the server configuration has been fetched.
	Configured bool
}

// UserIDs returns the session user ids in order.
func (s Snapshot) UserIDs() []string {
	out := make([]string, 0, len(s.Sessions))
	for _, st := range s.Sessions {
		out = append(out, st.UserID)
	}
	return out
}

// Snapshot returns the current state, sessions ordered by user id.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	ids := c.userIDsLocked()
	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, c.sessions[id])
	}
	snap := Snapshot{Current: c.current, Configured: c.configuration != nil}
	c.mu.RUnlock()

	snap.Sessions = make([]SessionState, 0, len(ids))
	for i, id := range ids {
		snap.Sessions = append(snap.Sessions, SessionState{UserID: id, Ready: sessions[i].Ready()})
	}
	return snap
}

// Subscribe registers fn to run after every state change. fn runs on the
// goroutine that made the change, outside the controller lock.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.RLock()
	if len(c.subscribers) == 0 {
		c.mu.RUnlock()
		return
	}
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	snap := c.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}
