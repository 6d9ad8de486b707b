// Package seed loads demo users and tickets from YAML.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

//go:embed campus.yaml
var defaultSeed []byte

// File is the YAML document layout.
type File struct {
	Users   []UserSpec   `yaml:"users"`
	Tickets []TicketSpec `yaml:"tickets"`
}

// UserSpec is a seeded account. Password is plaintext and hashed on load.
type UserSpec struct {
	Username  string   `yaml:"username"`
	Name      string   `yaml:"name"`
	Phone     string   `yaml:"phone"`
	Role      string   `yaml:"role"`
	Password  string   `yaml:"password"`
	Specialty []string `yaml:"specialty"`
}

// TicketSpec is a seeded ticket. Student and Repairman are usernames.
type TicketSpec struct {
	Title       string     `yaml:"title"`
	Category    string     `yaml:"category"`
	Location    string     `yaml:"location"`
	Description string     `yaml:"description"`
	Priority    string     `yaml:"priority"`
	Status      string     `yaml:"status"`
	Student     string     `yaml:"student"`
	Repairman   string     `yaml:"repairman"`
	RepairNotes string     `yaml:"repairNotes"`
	Rating      *int       `yaml:"rating"`
	Feedback    string     `yaml:"feedback"`
	CreatedAt   time.Time  `yaml:"createdAt"`
	AssignedAt  *time.Time `yaml:"assignedAt"`
	CompletedAt *time.Time `yaml:"completedAt"`
	ClosedAt    *time.Time `yaml:"closedAt"`
	EvaluatedAt *time.Time `yaml:"evaluatedAt"`
}

// Data is a validated seed ready for the stores. User ids follow file order.
type Data struct {
	Users   []domain.User
	Tickets []domain.Ticket
}

// Default returns the embedded campus seed.
func Default(bcryptCost int) (*Data, error) {
	return Parse(defaultSeed, bcryptCost)
}

// LoadFile reads and parses a seed file.
func LoadFile(path string, bcryptCost int) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(raw, bcryptCost)
}

// Parse decodes and validates a seed document.
func Parse(raw []byte, bcryptCost int) (*Data, error) {
	var doc File
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	data := &Data{}
	byUsername := make(map[string]domain.User, len(doc.Users))
	for i, spec := range doc.Users {
		user, err := buildUser(spec, int64(i+1), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", i+1, err)
		}
		if _, dup := byUsername[user.Username]; dup {
			return nil, fmt.Errorf("user %d: duplicate username %q", i+1, user.Username)
		}
		byUsername[user.Username] = user
		data.Users = append(data.Users, user)
	}
	for i, spec := range doc.Tickets {
		ticket, err := buildTicket(spec, int64(i+1), byUsername)
		if err != nil {
			return nil, fmt.Errorf("ticket %d: %w", i+1, err)
		}
		data.Tickets = append(data.Tickets, ticket)
	}
	return data, nil
}

// ApplyUsers writes the seeded accounts into repo. Existing usernames are kept.
func (d *Data) ApplyUsers(ctx context.Context, repo repository.UserRepository) error {
	for i := range d.Users {
		user := d.Users[i]
		user.ID = 0
		if err := repo.Create(ctx, &user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.Username, err)
		}
	}
	return nil
}

func buildUser(spec UserSpec, id int64, bcryptCost int) (domain.User, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(spec.Role)))
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("unknown role %q", spec.Role)
	}
	if strings.TrimSpace(spec.Username) == "" || spec.Password == "" {
		return domain.User{}, fmt.Errorf("username and password are required")
	}
	hash, err := auth.HashPassword(spec.Password, bcryptCost)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           id,
		Username:     strings.TrimSpace(spec.Username),
		Name:         spec.Name,
		Phone:        spec.Phone,
		Role:         role,
		PasswordHash: hash,
		Specialty:    spec.Specialty,
	}, nil
}

func buildTicket(spec TicketSpec, id int64, users map[string]domain.User) (domain.Ticket, error) {
	category, ok := domain.ParseCategory(spec.Category)
	if !ok {
		return domain.Ticket{}, fmt.Errorf("unknown category %q", spec.Category)
	}
	priority := domain.TicketPriorityMedium
	if spec.Priority != "" {
		if priority, ok = domain.ParsePriority(spec.Priority); !ok {
			return domain.Ticket{}, fmt.Errorf("unknown priority %q", spec.Priority)
		}
	}
	status, ok := domain.ParseStatus(spec.Status)
	if !ok {
		return domain.Ticket{}, fmt.Errorf("unknown status %q", spec.Status)
	}
	student, ok := users[spec.Student]
	if !ok || student.Role != domain.RoleStudent {
		return domain.Ticket{}, fmt.Errorf("student %q not seeded", spec.Student)
	}
	if spec.CreatedAt.IsZero() {
		return domain.Ticket{}, fmt.Errorf("createdAt is required")
	}

	ticket := domain.Ticket{
		ID:          id,
		Title:       spec.Title,
		Category:    category,
		Location:    spec.Location,
		Description: spec.Description,
		Priority:    priority,
		Status:      status,
		StudentID:   student.ID,
		StudentName: student.Name,
		RepairNotes: spec.RepairNotes,
		Rating:      spec.Rating,
		Feedback:    spec.Feedback,
		CreatedAt:   spec.CreatedAt,
		UpdatedAt:   spec.CreatedAt,
		AssignedAt:  spec.AssignedAt,
		CompletedAt: spec.CompletedAt,
		ClosedAt:    spec.ClosedAt,
		EvaluatedAt: spec.EvaluatedAt,
	}
	if spec.Repairman != "" {
		repairman, ok := users[spec.Repairman]
		if !ok || repairman.Role != domain.RoleRepairman {
			return domain.Ticket{}, fmt.Errorf("repairman %q not seeded", spec.Repairman)
		}
		rid := repairman.ID
		ticket.RepairmanID = &rid
	}
	for _, ts := range []*time.Time{ticket.AssignedAt, ticket.CompletedAt, ticket.ClosedAt, ticket.EvaluatedAt} {
		if ts != nil && ts.After(ticket.UpdatedAt) {
			ticket.UpdatedAt = *ts
		}
	}
	if err := checkConsistency(&ticket); err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// checkConsistency applies the lifecycle invariants to hand-written tickets.
func checkConsistency(t *domain.Ticket) error {
	switch t.Status {
	case domain.TicketStatusProcessing, domain.TicketStatusToBeEvaluated, domain.TicketStatusCompleted, domain.TicketStatusClosed:
		if t.RepairmanID == nil || t.AssignedAt == nil {
			return fmt.Errorf("status %s requires repairman and assignedAt", t.Status)
		}
	case domain.TicketStatusPending, domain.TicketStatusRejected:
		if t.RepairmanID != nil || t.CompletedAt != nil || t.Rating != nil {
			return fmt.Errorf("status %s cannot carry repairman, completion or rating", t.Status)
		}
	}
	if t.Rating != nil {
		if *t.Rating < 1 || *t.Rating > 5 {
			return fmt.Errorf("rating %d out of range", *t.Rating)
		}
		if t.CompletedAt == nil {
			return fmt.Errorf("rated ticket must be completed")
		}
	}
	if t.Status == domain.TicketStatusCompleted && t.Rating == nil {
		return fmt.Errorf("completed ticket must carry a rating")
	}
	if t.AssignedAt != nil && t.CompletedAt != nil && t.CompletedAt.Before(*t.AssignedAt) {
		return fmt.Errorf("completedAt precedes assignedAt")
	}
	if t.CompletedAt != nil && t.ClosedAt != nil && t.ClosedAt.Before(*t.CompletedAt) {
		return fmt.Errorf("closedAt precedes completedAt")
	}
	return nil
}
