package service

import (
	"context"
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

func TestAssignTicketValidatesRepairman(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, zhangSan, "热水器不出热水")

	cases := []struct {
		name        string
		actor       domain.Actor
		repairmanID int64
		code        string
	}{
		{"student", zhangSan, worker01.ID, apperrors.CodeForbidden},
		{"repairman", worker01, worker01.ID, apperrors.CodeForbidden},
		{"missing id", admin, 0, apperrors.CodeValidation},
		{"unknown user", admin, 99, apperrors.CodeNotFound},
		{"not a repairman", admin, liSi.ID, apperrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.assignment.AssignTicket(ctx, tc.actor, ticket.ID, tc.repairmanID)
			wantCode(t, err, tc.code)
		})
	}

	_, err := f.assignment.AssignTicket(ctx, admin, 404, worker01.ID)
	wantCode(t, err, apperrors.CodeNotFound)

	current, _ := f.service.GetTicket(ctx, ticket.ID)
	if current.Status != domain.TicketStatusPending || current.RepairmanID != nil {
		t.Fatalf("failed assignments changed the ticket: %+v", current)
	}
}

func TestUpdateStatusRejectAndClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, zhangSan, "重复报修")
	inFlight := f.create(t, liSi, "窗户关不上")
	if _, err := f.assignment.AssignTicket(ctx, admin, inFlight.ID, worker02.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.assignment.UpdateStatus(ctx, admin, pending.ID, "REJECTED", "  ")
	wantCode(t, err, apperrors.CodeValidation)
	_, err = f.assignment.UpdateStatus(ctx, admin, pending.ID, "PROCESSING", "")
	wantCode(t, err, apperrors.CodeValidation)
	_, err = f.assignment.UpdateStatus(ctx, admin, pending.ID, "ARCHIVED", "")
	wantCode(t, err, apperrors.CodeValidation)
	_, err = f.assignment.UpdateStatus(ctx, admin, pending.ID, "CLOSED", "no repairman")
	wantCode(t, err, apperrors.CodeIllegalTransition)
	_, err = f.assignment.UpdateStatus(ctx, worker02, inFlight.ID, "CLOSED", "")
	wantCode(t, err, apperrors.CodeForbidden)

	rejected, err := f.assignment.UpdateStatus(ctx, admin, pending.ID, "REJECTED", "与工单1重复")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != domain.TicketStatusRejected || rejected.RejectionReason != "与工单1重复" {
		t.Fatalf("rejected = %+v", rejected)
	}
	_, err = f.assignment.AssignTicket(ctx, admin, pending.ID, worker01.ID)
	wantCode(t, err, apperrors.CodeIllegalTransition)

	closed, err := f.assignment.UpdateStatus(ctx, admin, inFlight.ID, "closed", "学生已搬离")
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != domain.TicketStatusClosed || closed.ClosedAt == nil || closed.CloseReason != "学生已搬离" {
		t.Fatalf("closed = %+v", closed)
	}
	if !closed.IsAssignedTo(worker02.ID) {
		t.Fatalf("closing dropped the repairman")
	}
	_, err = f.tasks.UpdateNotes(ctx, worker02, inFlight.ID, "late note")
	wantCode(t, err, apperrors.CodeIllegalTransition)
}
