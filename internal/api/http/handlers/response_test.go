package handlers

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

func TestOptionalTime(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    *time.Time
		invalid bool
	}{
		{name: "blank", raw: "  "},
		{name: "rfc3339", raw: "2025-11-18T09:30:00Z", want: timeRef(time.Date(2025, 11, 18, 9, 30, 0, 0, time.UTC))},
		{name: "date only", raw: "2025-11-18", invalid: true},
		{name: "garbage", raw: "yesterday", invalid: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := optionalTime("createdFrom", tc.raw)
			if tc.invalid {
				if !apperrors.HasCode(err, apperrors.CodeValidation) || got != nil {
					t.Fatalf("got %v, %v; want VALIDATION_FAILED", got, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if (got == nil) != (tc.want == nil) || (got != nil && !got.Equal(*tc.want)) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPresenterLogsUnregisteredStatus(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))
	p := newPresenter(nil, lifecycle.NewEngine(nil))
	admin := domain.Actor{ID: 1, Role: domain.RoleAdmin}

	good := &domain.Ticket{ID: 1, Status: domain.TicketStatusPending}
	if resp := p.ticket(ctx, admin, good); resp.StatusLabel == "" {
		t.Fatalf("pending ticket has no label")
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected logs for a registered status: %v", logs.All())
	}

	corrupt := &domain.Ticket{ID: 7, Status: domain.TicketStatus("archived")}
	if resp := p.ticket(ctx, admin, corrupt); resp.StatusLabel != "" {
		t.Fatalf("label = %q for unknown status", resp.StatusLabel)
	}
	entries := logs.FilterMessage("ticket has unregistered status").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ticket_id"] != int64(7) || fields["status"] != "archived" {
		t.Fatalf("fields = %v", fields)
	}
}

func timeRef(t time.Time) *time.Time { return &t }
