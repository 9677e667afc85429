package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/storage"
	"github.com/plant-scanner/internal/types"
)

// In-memory repository fakes mirroring the Postgres semantics: unique
// username/email, transactional ingest with species-keyed dedup.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // by ID
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return &types.ServiceError{Code: types.CodeConflict, Message: "username already exists"}
		}
		if existing.Email == user.Email {
			return &types.ServiceError{Code: types.CodeConflict, Message: "email already exists"}
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.ProfilePicture == "" {
		user.ProfilePicture = models.DefaultProfilePicture
	}
	r.seq++
	user.CreatedAt = time.Unix(int64(r.seq), 0)
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == identifier || user.Email == identifier {
			copied := *user
			return &copied, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) UpdateProfilePicture(ctx context.Context, userID, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.ProfilePicture = uri
	return nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.users[id]
	return ok, nil
}

type fakePlantRepo struct {
	mu         sync.Mutex
	history    map[string][]*models.PlantRecord // userID -> ordered records
	collection map[string]map[string]*models.PlantRecord
	order      map[string][]string // userID -> species keys in first-seen order
}

func newFakePlantRepo() *fakePlantRepo {
	return &fakePlantRepo{
		history:    map[string][]*models.PlantRecord{},
		collection: map[string]map[string]*models.PlantRecord{},
		order:      map[string][]string{},
	}
}

func (r *fakePlantRepo) Ingest(ctx context.Context, userID string, record *models.PlantRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	copied := *record
	r.history[userID] = append(r.history[userID], &copied)

	if r.collection[userID] == nil {
		r.collection[userID] = map[string]*models.PlantRecord{}
	}
	key := record.SpeciesKey()
	if _, seen := r.collection[userID][key]; seen {
		return false, nil
	}
	r.collection[userID][key] = &copied
	r.order[userID] = append(r.order[userID], key)
	return true, nil
}

func (r *fakePlantRepo) ListHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*models.PlantRecord{}, r.history[userID]...), nil
}

func (r *fakePlantRepo) ListCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := []*models.PlantRecord{}
	for _, key := range r.order[userID] {
		records = append(records, r.collection[userID][key])
	}
	return records, nil
}

// Standings implements StandingsRepository over the fakes
type fakeStandings struct {
	users  *fakeUserRepo
	plants *fakePlantRepo
}

func (f *fakeStandings) Standings(ctx context.Context) ([]*models.Standing, error) {
	f.users.mu.Lock()
	users := make([]*models.User, 0, len(f.users.users))
	for _, u := range f.users.users {
		users = append(users, u)
	}
	f.users.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	f.plants.mu.Lock()
	defer f.plants.mu.Unlock()

	standings := make([]*models.Standing, 0, len(users))
	for _, u := range users {
		standings = append(standings, &models.Standing{
			Username:       u.Username,
			CollectionSize: len(f.plants.collection[u.ID]),
		})
	}

	// Largest collection first; ties break by registration order
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].CollectionSize > standings[j].CollectionSize
	})
	return standings, nil
}

// Credential fakes: a reversible "hash" is enough for service tests.

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type fakeTokens struct{}

func (fakeTokens) Issue(userID string) (string, error) { return "token-for-" + userID, nil }
