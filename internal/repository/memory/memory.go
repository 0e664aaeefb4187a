// Package memory holds process-local implementations of the repository
// stores. They back the "memory" storage driver and the HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// DB is the shared state behind the memory stores. Project deletion needs
// to reach the tasks table, so all stores share one lock.
type DB struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[int64]*model.User
	tokens   map[string]*model.AccessToken
	projects map[int64]*model.Project
	tasks    map[int64]*model.Task

	userSeq    int64
	projectSeq int64
	taskSeq    int64
}

func NewDB() *DB {
	return &DB{
		now:      time.Now,
		users:    map[int64]*model.User{},
		tokens:   map[string]*model.AccessToken{},
		projects: map[int64]*model.Project{},
		tasks:    map[int64]*model.Task{},
	}
}

// WithClock replaces the timestamp source. Tests use it to get distinct
// created_at values.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

func (db *DB) Users() *UserRepository       { return &UserRepository{db: db} }
func (db *DB) Tokens() *TokenRepository     { return &TokenRepository{db: db} }
func (db *DB) Projects() *ProjectRepository { return &ProjectRepository{db: db} }
func (db *DB) Tasks() *TaskRepository       { return &TaskRepository{db: db} }

type UserRepository struct{ db *DB }

func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.db.userSeq++
	now := r.db.now()
	u.ID = r.db.userSeq
	u.CreatedAt = now
	u.UpdatedAt = now
	stored := *u
	r.db.users[u.ID] = &stored
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *u
	return &found, nil
}

type TokenRepository struct{ db *DB }

func (r *TokenRepository) Insert(ctx context.Context, t *model.AccessToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t.CreatedAt = r.db.now()
	stored := *t
	r.db.tokens[t.ID] = &stored
	return nil
}

func (r *TokenRepository) FindByID(ctx context.Context, id string) (*model.AccessToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *t
	return &found, nil
}

func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.tokens, id)
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for id, t := range r.db.tokens {
		if t.Expired(now) {
			delete(r.db.tokens, id)
			n++
		}
	}
	return n, nil
}

type ProjectRepository struct{ db *DB }

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.projectSeq++
	now := r.db.now()
	p.ID = r.db.projectSeq
	p.CreatedAt = now
	p.UpdatedAt = now
	r.db.projects[p.ID] = cloneProject(p)
	return nil
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID int64) ([]model.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	projects := []model.Project{}
	for _, p := range r.db.projects {
		if p.UserID == userID {
			projects = append(projects, *cloneProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return newerFirst(projects[i].CreatedAt, projects[i].ID, projects[j].CreatedAt, projects[j].ID)
	})
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.projects[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UserID = stored.UserID
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = r.db.now()
	r.db.projects[p.ID] = cloneProject(p)
	return nil
}

// Delete removes the project and detaches its tasks, mirroring the
// ON DELETE SET NULL foreign key.
func (r *ProjectRepository) Delete(ctx context.Context, p *model.Project) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.projects, p.ID)
	for _, t := range r.db.tasks {
		if t.ProjectID != nil && *t.ProjectID == p.ID {
			t.ProjectID = nil
		}
	}
	return nil
}

type TaskRepository struct{ db *DB }

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.taskSeq++
	now := r.db.now()
	t.ID = r.db.taskSeq
	t.CreatedAt = now
	t.UpdatedAt = now
	r.db.tasks[t.ID] = cloneTask(t)
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	tasks := []model.Task{}
	for _, t := range r.db.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		tasks = append(tasks, *cloneTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		return newerFirst(tasks[i].CreatedAt, tasks[i].ID, tasks[j].CreatedAt, tasks[j].ID)
	})
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.tasks[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.UserID = stored.UserID
	t.CreatedAt = stored.CreatedAt
	t.UpdatedAt = r.db.now()
	r.db.tasks[t.ID] = cloneTask(t)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, t *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.tasks, t.ID)
	return nil
}

func cloneProject(p *model.Project) *model.Project {
	c := *p
	if p.Description != nil {
		d := *p.Description
		c.Description = &d
	}
	return &c
}

// cloneTask copies t including its pointer fields so callers never share
// memory with the store.
func cloneTask(t *model.Task) *model.Task {
	c := *t
	if t.ProjectID != nil {
		id := *t.ProjectID
		c.ProjectID = &id
	}
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

func newerFirst(aCreated time.Time, aID int64, bCreated time.Time, bID int64) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID > bID
}

var (
	_ repository.UserStore    = (*UserRepository)(nil)
	_ repository.TokenStore   = (*TokenRepository)(nil)
	_ repository.ProjectStore = (*ProjectRepository)(nil)
	_ repository.TaskStore    = (*TaskRepository)(nil)
)
