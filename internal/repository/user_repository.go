package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ErrDuplicate is returned by Insert when the username is taken.
var ErrDuplicate = errors.New("record already exists")

const uniqueViolation = "23505"

// UserRepository defines persistence access for accounts of every role.
type UserRepository interface {
	// Create inserts user, or loads the existing account with the same username.
	Create(ctx context.Context, user *domain.User) error
	// Insert adds a new account and fails with ErrDuplicate on a taken username.
	Insert(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, name, phone, role, password_hash, specialty, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, name, phone, role, password_hash, specialty)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (username) DO UPDATE SET username=EXCLUDED.username
        RETURNING id, created_at, updated_at`

	specialty := user.Specialty
	if specialty == nil {
		specialty = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Name,
		user.Phone,
		user.Role,
		user.PasswordHash,
		specialty,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Insert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, name, phone, role, password_hash, specialty)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	specialty := user.Specialty
	if specialty == nil {
		specialty = []string{}
	}
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Name,
		user.Phone,
		user.Role,
		user.PasswordHash,
		specialty,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, phone=$2, password_hash=$3, updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Phone,
		user.PasswordHash,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY id ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.Phone,
		&user.Role,
		&user.PasswordHash,
		&user.Specialty,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

type memoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]domain.User
}

// NewMemoryUserRepository builds an in-memory directory holding a copy of seed.
func NewMemoryUserRepository(seed []domain.User) UserRepository {
	r := &memoryUserRepository{users: make(map[int64]domain.User, len(seed))}
	for _, u := range seed {
		if u.ID == 0 {
			r.nextID++
			u.ID = r.nextID
		} else if u.ID > r.nextID {
			r.nextID = u.ID
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			*user = existing
			return nil
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = user.Name
	existing.Phone = user.Phone
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = existing
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUserRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	result := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
