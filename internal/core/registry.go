package core

import (
	"sort"

	"github.com/samber/lo"
)

// Registry maps room names to member-username sets. It carries no lock of
// its own: every mutation goes through the hub, which serializes registry
// and directory access in one synchronization domain.
type Registry struct {
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]struct{})}
}

// Create adds an empty room. Rooms are only ever created explicitly.
func (r *Registry) Create(name string) error {
	if _, exists := r.rooms[name]; exists {
		return ErrRoomExists
	}
	r.rooms[name] = make(map[string]struct{})
	return nil
}

// Join adds user to an existing room.
func (r *Registry) Join(name, user string) error {
	members, ok := r.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	members[user] = struct{}{}
	return nil
}

// Leave removes user from a room. No-op when the room or membership is
// absent; rooms are never deleted implicitly.
func (r *Registry) Leave(name, user string) {
	if members, ok := r.rooms[name]; ok {
		delete(members, user)
	}
}

// Members returns a sorted copy of a room's member names.
func (r *Registry) Members(name string) []string {
	members, ok := r.rooms[name]
	if !ok {
		return nil
	}
	users := lo.Keys(members)
	sort.Strings(users)
	return users
}

// memberSet returns the live set for iteration under the hub lock.
func (r *Registry) memberSet(name string) map[string]struct{} {
	return r.rooms[name]
}

// Snapshot returns an immutable copy of all rooms and their members,
// sorted by room name, safe to hand to writers outside the lock.
func (r *Registry) Snapshot() []RoomInfo {
	names := lo.Keys(r.rooms)
	sort.Strings(names)

	return lo.Map(names, func(name string, _ int) RoomInfo {
		return RoomInfo{Name: name, Users: r.Members(name)}
	})
}
