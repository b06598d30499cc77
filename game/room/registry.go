package room

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/tictactoe-relay/game/board"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomFull      = errors.New("room is full")
	ErrInvalidRoomID = errors.New("invalid room ID")
	ErrAlreadyInRoom = errors.New("participant already in a room")
)

// MaxRoomIDLength bounds caller-chosen room identifiers.
const MaxRoomIDLength = 64

// Registry maps room IDs to rooms and participants to the room they sit in.
type Registry struct {
	rooms        map[string]*Room
	participants map[string]string
	mu           sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		participants: make(map[string]string),
	}
}

// NormalizeID trims a caller-supplied room ID and checks it is usable.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidRoomID
	}
	if len(id) > MaxRoomIDLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidRoomID, MaxRoomIDLength)
	}
	return id, nil
}

// Create opens a room with creatorID seated as X.
func (r *Registry) Create(id, creatorID string) (*Room, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.participants[creatorID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInRoom, current)
	}
	if _, exists := r.rooms[id]; exists {
		return nil, ErrRoomExists
	}

	rm := newRoom(id, creatorID)
	r.rooms[id] = rm
	r.participants[creatorID] = id
	return rm, nil
}

// Join seats joinerID as O in an existing room with a free O seat.
func (r *Registry) Join(id, joinerID string) (*Room, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if current, ok := r.participants[joinerID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInRoom, current)
	}
	if _, taken := rm.Player(board.O); taken {
		return nil, ErrRoomFull
	}

	rm.seats[board.O] = joinerID
	rm.touch()
	r.participants[joinerID] = id
	return rm, nil
}

// Get looks up a room by ID.
func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[strings.TrimSpace(id)]
	return rm, ok
}

// RoomOf returns the room ID participantID sits in.
func (r *Registry) RoomOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.participants[participantID]
	return id, ok
}

// Remove deletes a room and frees its seats. Removing a missing room is a no-op.
func (r *Registry) Remove(id string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(strings.TrimSpace(id))
}

// RemoveByParticipant deletes the room participantID sits in, if any.
func (r *Registry) RemoveByParticipant(participantID string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.participants[participantID]
	if !ok {
		return nil, false
	}
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) (*Room, bool) {
	rm, ok := r.rooms[id]
	if !ok {
		return nil, false
	}
	delete(r.rooms, id)
	for _, member := range rm.Members() {
		if r.participants[member] == id {
			delete(r.participants, member)
		}
	}
	return rm, true
}

// List returns all rooms ordered by creation time.
func (r *Registry) List() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		result = append(result, rm)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
