package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

var t0 = time.Date(2025, 11, 18, 9, 0, 0, 0, time.UTC)

var (
	admin    = domain.Actor{ID: 1, Role: domain.RoleAdmin}
	worker01 = domain.Actor{ID: 2, Role: domain.RoleRepairman}
	worker02 = domain.Actor{ID: 3, Role: domain.RoleRepairman}
	zhangSan = domain.Actor{ID: 5, Role: domain.RoleStudent}
	liSi     = domain.Actor{ID: 6, Role: domain.RoleStudent}
)

var directory = []domain.User{
	{ID: 1, Username: "admin", Name: "系统管理员", Role: domain.RoleAdmin},
	{ID: 2, Username: "worker01", Name: "王师傅", Role: domain.RoleRepairman},
	{ID: 3, Username: "worker02", Name: "李师傅", Role: domain.RoleRepairman},
	{ID: 5, Username: "2021001", Name: "张三", Role: domain.RoleStudent},
	{ID: 6, Username: "2021002", Name: "李四", Role: domain.RoleStudent},
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock      *fakeClock
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	metrics    *observability.Metrics
	events     *eventLog
	feedback   *FeedbackService
	service    *TicketService
	assignment *AssignmentService
	tasks      *TaskService
	query      *QueryService
}

func newFixture(t *testing.T, seed ...domain.Ticket) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &fakeClock{now: t0},
		tickets: repository.NewMemoryTicketRepository(seed),
		users:   repository.NewMemoryUserRepository(directory),
		history: repository.NewMemoryTicketHistoryRepository(),
		metrics: observability.NewMetrics(),
		events:  &eventLog{},
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(f.events.record)
	f.feedback = NewFeedbackService(f.tickets, f.users)
	f.service = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		UserRepo:    f.users,
		HistoryRepo: f.history,
		Engine:      lifecycle.NewEngine(f.feedback),
		Dispatcher:  dispatcher,
		Metrics:     f.metrics,
		Clock:       f.clock.Now,
	})
	f.assignment = NewAssignmentService(AssignmentDependencies{Tickets: f.service, UserRepo: f.users})
	f.tasks = NewTaskService(f.service, f.clock.Now)
	f.query = NewQueryService(f.tickets)
	return f
}

func (f *fixture) create(t *testing.T, student domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.CreateTicket(context.Background(), student, TicketCreateInput{
		Title:    title,
		Category: domain.CategoryWaterAndElectricity,
		Location: "宿舍楼A栋 302",
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return ticket
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("err = %v, want code %s", err, code)
	}
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }
