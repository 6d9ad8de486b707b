package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

func TestCreateTicketDefaults(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t, zhangSan, "  宿舍灯管不亮  ")

	if ticket.ID != 1 || ticket.Status != domain.TicketStatusPending {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.Title != "宿舍灯管不亮" {
		t.Fatalf("title not trimmed: %q", ticket.Title)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority = %s, want medium", ticket.Priority)
	}
	if ticket.StudentName != "张三" || ticket.RepairmanID != nil {
		t.Fatalf("student name %q, repairman %v", ticket.StudentName, ticket.RepairmanID)
	}
	if !ticket.CreatedAt.Equal(t0) || !ticket.UpdatedAt.Equal(t0) {
		t.Fatalf("timestamps = %v / %v", ticket.CreatedAt, ticket.UpdatedAt)
	}

	history, err := f.service.ListHistory(context.Background(), zhangSan, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Action != domain.ActionCreate || history[0].ToStatus != domain.TicketStatusPending {
		t.Fatalf("history = %+v", history)
	}
	if got := f.events.types(); len(got) != 1 || got[0] != events.EventTicketCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock.Advance(15 * time.Minute)
	input := TicketCreateInput{
		Title:        "卫生间水龙头漏水",
		Category:     domain.CategoryWaterAndElectricity,
		Location:     "宿舍楼C栋 210",
		Description:  "关不紧，一直滴水",
		Priority:     domain.TicketPriorityHigh,
		ContactPhone: "13800000005",
		Images:       []string{"https://img.example/a.jpg", "https://img.example/b.jpg"},
	}
	created, err := f.service.CreateTicket(ctx, zhangSan, input)
	if err != nil {
		t.Fatal(err)
	}
	input.Images[0] = "changed-after-create"

	got, err := f.service.GetTicket(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Ticket{
		ID:           created.ID,
		Title:        "卫生间水龙头漏水",
		Category:     domain.CategoryWaterAndElectricity,
		Location:     "宿舍楼C栋 210",
		Description:  "关不紧，一直滴水",
		Priority:     domain.TicketPriorityHigh,
		Status:       domain.TicketStatusPending,
		StudentID:    zhangSan.ID,
		StudentName:  "张三",
		ContactPhone: "13800000005",
		CreatedAt:    t0.Add(15 * time.Minute),
		UpdatedAt:    t0.Add(15 * time.Minute),
	}
	if got.ID == 0 || got.Title != want.Title || got.Category != want.Category || got.Location != want.Location ||
		got.Description != want.Description || got.Priority != want.Priority || got.Status != want.Status ||
		got.StudentID != want.StudentID || got.StudentName != want.StudentName || got.ContactPhone != want.ContactPhone {
		t.Fatalf("got  %+v\nwant %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("created/updated = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, want.CreatedAt)
	}
	if len(got.Images) != 2 || got.Images[0] != "https://img.example/a.jpg" || got.Images[1] != "https://img.example/b.jpg" {
		t.Fatalf("images = %v", got.Images)
	}
	if got.RepairmanID != nil || got.Rating != nil || got.EstimatedCompletion != nil {
		t.Fatalf("assignment fields set on a new ticket: %+v", got)
	}
	if got.AssignedAt != nil || got.CompletedAt != nil || got.ClosedAt != nil || got.EvaluatedAt != nil {
		t.Fatalf("lifecycle timestamps set on a new ticket: assigned %v completed %v closed %v evaluated %v",
			got.AssignedAt, got.CompletedAt, got.ClosedAt, got.EvaluatedAt)
	}
	if got.RejectionReason != "" || got.CloseReason != "" || got.RepairNotes != "" || got.Feedback != "" {
		t.Fatalf("text fields set on a new ticket: %+v", got)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := TicketCreateInput{Title: "门锁坏了", Category: domain.CategoryFurnitureRepair, Location: "教学楼B 101"}

	cases := []struct {
		name  string
		actor domain.Actor
		edit  func(*TicketCreateInput)
		code  string
	}{
		{"admin cannot report", admin, func(*TicketCreateInput) {}, apperrors.CodeForbidden},
		{"repairman cannot report", worker01, func(*TicketCreateInput) {}, apperrors.CodeForbidden},
		{"missing title", zhangSan, func(in *TicketCreateInput) { in.Title = "   " }, apperrors.CodeValidation},
		{"missing location", zhangSan, func(in *TicketCreateInput) { in.Location = "" }, apperrors.CodeValidation},
		{"unknown category", zhangSan, func(in *TicketCreateInput) { in.Category = "plumbing" }, apperrors.CodeValidation},
		{"unknown priority", zhangSan, func(in *TicketCreateInput) { in.Priority = "urgent" }, apperrors.CodeValidation},
		{"too many images", zhangSan, func(in *TicketCreateInput) { in.Images = make([]string, 10) }, apperrors.CodeValidation},
		{"unknown student", domain.Actor{ID: 99, Role: domain.RoleStudent}, func(*TicketCreateInput) {}, apperrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.edit(&input)
			_, err := f.service.CreateTicket(ctx, tc.actor, input)
			wantCode(t, err, tc.code)
		})
	}

	list, _ := f.tickets.List(ctx, repository.TicketFilter{})
	if len(list) != 0 {
		t.Fatalf("rejected creations stored %d tickets", len(list))
	}
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, zhangSan, "水龙头漏水")

	f.clock.Advance(10 * time.Minute)
	assigned, err := f.assignment.AssignTicket(ctx, admin, ticket.ID, worker01.ID)
	if err != nil {
		t.Fatal(err)
	}
	if assigned.Status != domain.TicketStatusProcessing || !assigned.IsAssignedTo(worker01.ID) {
		t.Fatalf("after assign: %+v", assigned)
	}
	if assigned.AssignedAt == nil || !assigned.AssignedAt.Equal(t0.Add(10*time.Minute)) {
		t.Fatalf("assignedAt = %v", assigned.AssignedAt)
	}

	eta := t0.Add(3 * time.Hour)
	started, err := f.tasks.Start(ctx, worker01, ticket.ID, "PROCESSING", &eta)
	if err != nil {
		t.Fatal(err)
	}
	if started.Status != domain.TicketStatusProcessing || started.EstimatedCompletion == nil || !started.EstimatedCompletion.Equal(eta) {
		t.Fatalf("after start: %+v", started)
	}

	f.clock.Advance(50 * time.Minute)
	completed, err := f.tasks.Complete(ctx, worker01, ticket.ID, "COMPLETED", "更换了阀芯")
	if err != nil {
		t.Fatal(err)
	}
	if completed.Status != domain.TicketStatusToBeEvaluated || completed.RepairNotes != "更换了阀芯" {
		t.Fatalf("after complete: %+v", completed)
	}
	if timing := ComputeTiming(completed, t0.Add(24*time.Hour)); timing.DurationMinutes != 50 || timing.Overdue {
		t.Fatalf("timing = %+v", timing)
	}

	f.clock.Advance(time.Hour)
	evaluated, err := f.service.Apply(ctx, zhangSan, ticket.ID, lifecycle.Evaluate(5, "师傅很专业"))
	if err != nil {
		t.Fatal(err)
	}
	if evaluated.Status != domain.TicketStatusCompleted || evaluated.Rating == nil || *evaluated.Rating != 5 {
		t.Fatalf("after evaluate: %+v", evaluated)
	}
	if evaluated.EvaluatedAt == nil || !evaluated.EvaluatedAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("evaluatedAt = %v", evaluated.EvaluatedAt)
	}

	_, err = f.service.Apply(ctx, zhangSan, ticket.ID, lifecycle.Evaluate(1, "changed my mind"))
	wantCode(t, err, apperrors.CodeAlreadyEvaluated)

	history, err := f.service.ListHistory(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantActions := []domain.TicketAction{
		domain.ActionCreate, domain.ActionAssign, domain.ActionStart, domain.ActionComplete, domain.ActionEvaluate,
	}
	if len(history) != len(wantActions) {
		t.Fatalf("history has %d entries, want %d", len(history), len(wantActions))
	}
	for i, action := range wantActions {
		if history[i].Action != action {
			t.Fatalf("history[%d] = %s, want %s", i, history[i].Action, action)
		}
	}
	if history[3].Comment != "更换了阀芯" {
		t.Fatalf("complete comment = %q", history[3].Comment)
	}

	wantEvents := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketTransitioned,
		events.EventTicketTransitioned,
		events.EventTicketTransitioned,
		events.EventTicketEvaluated,
		events.EventTicketTransitioned,
	}
	got := f.events.types()
	if len(got) != len(wantEvents) {
		t.Fatalf("events = %v", got)
	}
	for i := range wantEvents {
		if got[i] != wantEvents[i] {
			t.Fatalf("events = %v, want %v", got, wantEvents)
		}
	}
}

func TestRejectedTransitionChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, zhangSan, "空调不制冷")
	if _, err := f.assignment.AssignTicket(ctx, admin, ticket.ID, worker01.ID); err != nil {
		t.Fatal(err)
	}
	before, _ := f.service.GetTicket(ctx, ticket.ID)

	f.clock.Advance(time.Hour)
	_, err := f.tasks.Complete(ctx, worker02, ticket.ID, "", "not mine")
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.Apply(ctx, zhangSan, ticket.ID, lifecycle.Evaluate(4, "too early"))
	wantCode(t, err, apperrors.CodeIllegalTransition)

	after, _ := f.service.GetTicket(ctx, ticket.ID)
	if after.Status != before.Status || after.RepairNotes != "" || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("ticket changed by rejected transitions: %+v", after)
	}
	history, _ := f.history.ListByTicket(ctx, ticket.ID)
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}

	snap := f.metrics.Snapshot()
	if snap.RejectedTransitions["complete"] != 1 || snap.RejectedTransitions["evaluate"] != 1 {
		t.Fatalf("rejected = %v", snap.RejectedTransitions)
	}
	if snap.Transitions["assign"] != 1 {
		t.Fatalf("transitions = %v", snap.Transitions)
	}
}

func TestEvaluateChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, zhangSan, "网口没信号")
	if _, err := f.assignment.AssignTicket(ctx, admin, ticket.ID, worker02.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tasks.Complete(ctx, worker02, ticket.ID, "TO_BE_EVALUATED", "重新压了水晶头"); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.Apply(ctx, liSi, ticket.ID, lifecycle.Evaluate(5, ""))
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.Apply(ctx, zhangSan, ticket.ID, lifecycle.Evaluate(6, ""))
	wantCode(t, err, apperrors.CodeInvalidRating)
	_, err = f.service.Apply(ctx, zhangSan, ticket.ID, lifecycle.Evaluate(0, ""))
	wantCode(t, err, apperrors.CodeInvalidRating)

	current, _ := f.service.GetTicket(ctx, ticket.ID)
	if current.Status != domain.TicketStatusToBeEvaluated || current.Rating != nil {
		t.Fatalf("invalid evaluations changed the ticket: %+v", current)
	}
}

func TestConcurrentAssignOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, liSi, "楼道灯闪烁")

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	illegal := 0
	for i := 0; i < attempts; i++ {
		repairman := worker01.ID
		if i%2 == 1 {
			repairman = worker02.ID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.assignment.AssignTicket(ctx, admin, ticket.ID, repairman)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperrors.HasCode(err, apperrors.CodeIllegalTransition):
				illegal++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || illegal != attempts-1 {
		t.Fatalf("wins = %d, illegal = %d", wins, illegal)
	}
	history, _ := f.history.ListByTicket(ctx, ticket.ID)
	assigns := 0
	for _, h := range history {
		if h.Action == domain.ActionAssign {
			assigns++
		}
	}
	if assigns != 1 {
		t.Fatalf("%d assign entries recorded", assigns)
	}
}

func TestDeletePendingTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.create(t, zhangSan, "椅子腿断了")
	assigned := f.create(t, zhangSan, "桌子晃")
	if _, err := f.assignment.AssignTicket(ctx, admin, assigned.ID, worker01.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.Apply(ctx, liSi, mine.ID, lifecycle.Delete())
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.Apply(ctx, zhangSan, assigned.ID, lifecycle.Delete())
	wantCode(t, err, apperrors.CodeIllegalTransition)

	removed, err := f.service.Apply(ctx, zhangSan, mine.ID, lifecycle.Delete())
	if err != nil || removed != nil {
		t.Fatalf("delete = %v, %v", removed, err)
	}
	_, err = f.service.GetTicket(ctx, mine.ID)
	wantCode(t, err, apperrors.CodeNotFound)
	_, err = f.service.Apply(ctx, zhangSan, mine.ID, lifecycle.Delete())
	wantCode(t, err, apperrors.CodeNotFound)

	got := f.events.types()
	if got[len(got)-1] != events.EventTicketDeleted {
		t.Fatalf("last event = %s", got[len(got)-1])
	}
}

func TestTicketVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, zhangSan, "洗衣机不转")

	if _, err := f.service.GetTicketForActor(ctx, admin, ticket.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := f.service.GetTicketForActor(ctx, zhangSan, ticket.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	_, err := f.service.GetTicketForActor(ctx, liSi, ticket.ID)
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.GetTicketForActor(ctx, worker01, ticket.ID)
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.ListHistory(ctx, liSi, ticket.ID)
	wantCode(t, err, apperrors.CodeForbidden)

	if _, err := f.assignment.AssignTicket(ctx, admin, ticket.ID, worker01.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.GetTicketForActor(ctx, worker01, ticket.ID); err != nil {
		t.Fatalf("assigned repairman: %v", err)
	}
	_, err = f.service.GetTicketForActor(ctx, worker02, ticket.ID)
	wantCode(t, err, apperrors.CodeForbidden)
	_, err = f.service.GetTicketForActor(ctx, admin, 404)
	wantCode(t, err, apperrors.CodeNotFound)
}
