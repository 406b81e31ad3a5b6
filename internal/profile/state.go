package profile

// State is an immutable snapshot of the profile group: the member list in
// arrival order (parent first) and each member's availability, where
// available means not in quiet mode.
type State struct {
	users        []User
	availability map[UserID]bool
}

func emptyState() State {
	return State{availability: make(map[UserID]bool)}
}

// Users returns the member list, de-duplicated by identity, parent first.
func (s State) Users() []User {
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// Availability returns the identity-to-available mapping.
func (s State) Availability() map[UserID]bool {
	out := make(map[UserID]bool, len(s.availability))
	for k, v := range s.availability {
		out[k] = v
	}
	return out
}

// Available reports whether the user is present and not in quiet mode.
func (s State) Available(id UserID) bool {
	return s.availability[id]
}

// Contains reports whether the user is a current group member.
func (s State) Contains(id UserID) bool {
	_, ok := s.availability[id]
	return ok
}

// Len returns the member count.
func (s State) Len() int { return len(s.users) }

func (s State) with(u User, available bool) State {
	users := make([]User, 0, len(s.users)+1)
	users = append(users, s.users...)
	users = append(users, u)

	avail := make(map[UserID]bool, len(s.availability)+1)
	for k, v := range s.availability {
		avail[k] = v
	}
	avail[u.ID] = available

	return State{users: users, availability: avail}
}

func (s State) without(id UserID) State {
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != id {
			users = append(users, u)
		}
	}

	avail := make(map[UserID]bool, len(s.availability))
	for k, v := range s.availability {
		if k != id {
			avail[k] = v
		}
	}

	return State{users: users, availability: avail}
}

func (s State) withAvailability(id UserID, available bool) State {
	users := make([]User, len(s.users))
	copy(users, s.users)

	avail := make(map[UserID]bool, len(s.availability))
	for k, v := range s.availability {
		avail[k] = v
	}
	avail[id] = available

	return State{users: users, availability: avail}
}
