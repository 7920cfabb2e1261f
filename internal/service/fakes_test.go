package service

import (
	"github.com/google/uuid"

	"servly-chat-server/internal/domain"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) CreateUser(user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByID(id uuid.UUID) (*domain.User, error) {
	return f.users[id], nil
}

type fakeBookingRepo struct {
	// completed pairs, stored both directions
	pairs map[uuid.UUID][]uuid.UUID
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{pairs: make(map[uuid.UUID][]uuid.UUID)}
}

func (f *fakeBookingRepo) addCompleted(a, b uuid.UUID) {
	f.pairs[a] = append(f.pairs[a], b)
	f.pairs[b] = append(f.pairs[b], a)
}

func (f *fakeBookingRepo) CompletedCounterparts(participantID uuid.UUID) ([]uuid.UUID, error) {
	return f.pairs[participantID], nil
}

func (f *fakeBookingRepo) HasCompletedBooking(a, b uuid.UUID) (bool, error) {
	for _, c := range f.pairs[a] {
		if c == b {
			return true, nil
		}
	}
	return false, nil
}
