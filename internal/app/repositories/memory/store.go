// Package memory provides an in-process record store used by default and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yigit/workshophub/internal/app/models"
	"github.com/yigit/workshophub/internal/pkg/apperrors"
)

type voteKey struct {
	studentID  int64
	workshopID int64
}

// Store keeps users, workshops, votes and refresh tokens in maps keyed by id.
// Ids are assigned from per-entity counters that only advance under the write lock.
type Store struct {
	mu sync.RWMutex

	users       map[int64]*models.User
	usernames   map[string]int64
	workshops   map[int64]*models.Workshop
	workshopIDs []int64
	votes       map[int64]*models.StudentVote
	voteIndex   map[voteKey]int64
	tokens      map[string]*models.RefreshToken

	nextUserID     int64
	nextWorkshopID int64
	nextVoteID     int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]*models.User),
		usernames: make(map[string]int64),
		workshops: make(map[int64]*models.Workshop),
		votes:     make(map[int64]*models.StudentVote),
		voteIndex: make(map[voteKey]int64),
		tokens:    make(map[string]*models.RefreshToken),
	}
}

// CreateUser stores a user under the next id.
func (s *Store) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[user.Username]; taken {
		return nil, apperrors.ErrUsernameTaken
	}

	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.users[stored.ID] = &stored
	s.usernames[stored.Username] = stored.ID

	out := stored
	return &out, nil
}

// GetUserByID returns a copy of the user with the given id.
func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

// GetUserByUsername returns a copy of the user with the given username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// CreateWorkshop stores a workshop with status pending regardless of the input.
func (s *Store) CreateWorkshop(_ context.Context, workshop *models.Workshop) (*models.Workshop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[workshop.LecturerID]; !ok {
		return nil, apperrors.ErrUserNotFound
	}

	s.nextWorkshopID++
	stored := *workshop
	stored.ID = s.nextWorkshopID
	stored.Status = models.StatusPending
	s.workshops[stored.ID] = &stored
	s.workshopIDs = append(s.workshopIDs, stored.ID)

	out := stored
	return &out, nil
}

// GetWorkshops returns every workshop in id order.
func (s *Store) GetWorkshops(_ context.Context) ([]*models.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workshops := make([]*models.Workshop, 0, len(s.workshopIDs))
	for _, id := range s.workshopIDs {
		w := *s.workshops[id]
		workshops = append(workshops, &w)
	}
	return workshops, nil
}

// GetWorkshopByID returns a copy of the workshop with the given id.
func (s *Store) GetWorkshopByID(_ context.Context, id int64) (*models.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workshop, ok := s.workshops[id]
	if !ok {
		return nil, apperrors.ErrWorkshopNotFound
	}
	out := *workshop
	return &out, nil
}

// UpdateWorkshopStatus replaces the status of an existing workshop.
func (s *Store) UpdateWorkshopStatus(_ context.Context, id int64, status models.WorkshopStatus) (*models.Workshop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	workshop, ok := s.workshops[id]
	if !ok {
		return nil, apperrors.ErrWorkshopNotFound
	}
	workshop.Status = status
	out := *workshop
	return &out, nil
}

// CreateVote stores a vote. The (student, workshop) pair is checked under the
// write lock, so concurrent duplicates cannot both succeed.
func (s *Store) CreateVote(_ context.Context, vote *models.StudentVote) (*models.StudentVote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workshops[vote.WorkshopID]; !ok {
		return nil, apperrors.ErrWorkshopNotFound
	}
	if _, ok := s.users[vote.StudentID]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	key := voteKey{studentID: vote.StudentID, workshopID: vote.WorkshopID}
	if _, exists := s.voteIndex[key]; exists {
		return nil, apperrors.ErrDuplicateVote
	}

	s.nextVoteID++
	stored := *vote
	stored.ID = s.nextVoteID
	s.votes[stored.ID] = &stored
	s.voteIndex[key] = stored.ID

	out := stored
	return &out, nil
}

// GetVotesByWorkshop returns the workshop's votes in id order.
func (s *Store) GetVotesByWorkshop(_ context.Context, workshopID int64) ([]*models.StudentVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := []*models.StudentVote{}
	for id := int64(1); id <= s.nextVoteID; id++ {
		v, ok := s.votes[id]
		if !ok || v.WorkshopID != workshopID {
			continue
		}
		out := *v
		votes = append(votes, &out)
	}
	return votes, nil
}

// GetVoteByStudentAndWorkshop returns the vote a student cast on a workshop.
func (s *Store) GetVoteByStudentAndWorkshop(_ context.Context, studentID, workshopID int64) (*models.StudentVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.voteIndex[voteKey{studentID: studentID, workshopID: workshopID}]
	if !ok {
		return nil, apperrors.ErrVoteNotFound
	}
	out := *s.votes[id]
	return &out, nil
}

// CreateToken stores a refresh token.
func (s *Store) CreateToken(_ context.Context, token string, userID int64, expiryDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token]; exists {
		return apperrors.ErrTokenInvalid
	}
	s.tokens[token] = &models.RefreshToken{
		Token:      token,
		UserID:     userID,
		ExpiryDate: expiryDate,
		CreatedAt:  time.Now(),
	}
	return nil
}

// GetTokenByValue returns a copy of the stored refresh token.
func (s *Store) GetTokenByValue(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	out := *rt
	return &out, nil
}

// RevokeToken marks a refresh token as revoked.
func (s *Store) RevokeToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	rt.IsRevoked = true
	return nil
}

// RevokeAllUserTokens revokes every refresh token issued to a user.
func (s *Store) RevokeAllUserTokens(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rt := range s.tokens {
		if rt.UserID == userID {
			rt.IsRevoked = true
		}
	}
	return nil
}
