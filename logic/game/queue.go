package game

// joinQueue 等空位的会话, 先来先得
type joinQueue struct {
	sessions []uint32
}

func (q *joinQueue) push(session uint32) int {
	q.sessions = append(q.sessions, session)
	return len(q.sessions) - 1
}

func (q *joinQueue) pop() (uint32, bool) {
	if len(q.sessions) == 0 {
		return 0, false
	}
	s := q.sessions[0]
	q.sessions = q.sessions[1:]
	return s, true
}

// remove 返回是否在队里
func (q *joinQueue) remove(session uint32) bool {
	for i, s := range q.sessions {
		if s == session {
			q.sessions = append(q.sessions[:i], q.sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (q *joinQueue) position(session uint32) int {
	for i, s := range q.sessions {
		if s == session {
			return i
		}
	}
	return -1
}

func (q *joinQueue) len() int {
	return len(q.sessions)
}
