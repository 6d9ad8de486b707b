package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ratedCampus seeds four tickets: three rated, one still being repaired.
func ratedCampus() []domain.Ticket {
	at := func(h int) *time.Time { return timePtr(t0.Add(time.Duration(h) * time.Hour)) }
	base := func(title, location string, category domain.TicketCategory, repairman int64) domain.Ticket {
		return domain.Ticket{
			Title:       title,
			Category:    category,
			Location:    location,
			Priority:    domain.TicketPriorityMedium,
			Status:      domain.TicketStatusCompleted,
			StudentID:   zhangSan.ID,
			StudentName: "张三",
			RepairmanID: int64Ptr(repairman),
			CreatedAt:   t0,
			UpdatedAt:   t0,
			AssignedAt:  at(0),
		}
	}
	first := base("灯不亮", "宿舍楼A栋", domain.CategoryWaterAndElectricity, worker01.ID)
	first.CompletedAt, first.EvaluatedAt, first.Rating = at(2), at(3), intPtr(5)
	second := base("网络断", "宿舍楼A栋", domain.CategoryNetworkIssues, worker01.ID)
	second.CompletedAt, second.EvaluatedAt, second.Rating = at(4), at(6), intPtr(4)
	third := base("柜门掉了", "图书馆", domain.CategoryFurnitureRepair, worker02.ID)
	third.CompletedAt, third.EvaluatedAt, third.Rating = at(3), at(5), intPtr(3)
	fourth := base("空调异响", "教学楼", domain.CategoryApplianceIssues, worker02.ID)
	fourth.Status = domain.TicketStatusProcessing
	return []domain.Ticket{first, second, third, fourth}
}

func TestListFeedbackOrderAndFilters(t *testing.T) {
	f := newFixture(t, ratedCampus()...)
	ctx := context.Background()

	page, err := f.feedback.ListFeedback(ctx, FeedbackQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	want := []int64{2, 3, 1}
	for i, entry := range page.List {
		if entry.TicketID != want[i] {
			t.Fatalf("order = %+v, want ids %v", page.List, want)
		}
	}
	if page.List[0].RepairmanName != "王师傅" || page.List[0].StudentName != "张三" {
		t.Fatalf("names = %+v", page.List[0])
	}

	fives, _ := f.feedback.ListFeedback(ctx, FeedbackQuery{Rating: intPtr(5)})
	if fives.Total != 1 || fives.List[0].TicketID != 1 {
		t.Fatalf("rating filter = %+v", fives)
	}
	mine, _ := f.feedback.ListFeedback(ctx, FeedbackQuery{RepairmanID: int64Ptr(worker02.ID)})
	if mine.Total != 1 || mine.List[0].TicketID != 3 {
		t.Fatalf("repairman filter = %+v", mine)
	}
}

func TestRepairmanRatings(t *testing.T) {
	f := newFixture(t, ratedCampus()...)
	ratings, err := f.feedback.RepairmanRatings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ratings) != 2 {
		t.Fatalf("ratings = %+v", ratings)
	}
	top := ratings[0]
	if top.RepairmanID != worker01.ID || top.AverageRating != 4.5 || top.RatedOrders != 2 || top.CompletedOrders != 2 {
		t.Fatalf("top = %+v", top)
	}
	second := ratings[1]
	if second.RepairmanID != worker02.ID || second.AverageRating != 3 || second.CompletedOrders != 1 {
		t.Fatalf("second = %+v", second)
	}
}

func TestRankRepairmenTies(t *testing.T) {
	repairmen := []domain.User{
		{ID: 4, Name: "赵师傅", Role: domain.RoleRepairman},
		{ID: 2, Name: "王师傅", Role: domain.RoleRepairman},
		{ID: 3, Name: "李师傅", Role: domain.RoleRepairman},
	}
	done := timePtr(t0)
	tickets := []domain.Ticket{
		{RepairmanID: int64Ptr(2), Rating: intPtr(4), CompletedAt: done},
		{RepairmanID: int64Ptr(4), Rating: intPtr(4), CompletedAt: done},
		{RepairmanID: int64Ptr(4), CompletedAt: done},
		{RepairmanID: int64Ptr(99), Rating: intPtr(1)},
	}
	ranked := rankRepairmen(repairmen, tickets)
	got := []int64{ranked[0].RepairmanID, ranked[1].RepairmanID, ranked[2].RepairmanID}
	if got[0] != 4 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("ranking = %v, want [4 2 3]", got)
	}
	if ranked[2].AverageRating != 0 || ranked[2].RatedOrders != 0 {
		t.Fatalf("unrated = %+v", ranked[2])
	}
}

func TestRoundTenth(t *testing.T) {
	cases := map[float64]float64{4.44: 4.4, 4.25: 4.3, 2.0 / 3.0: 0.7, 5: 5}
	for in, want := range cases {
		if got := roundTenth(in); got != want {
			t.Errorf("roundTenth(%v) = %v, want %v", in, got, want)
		}
	}
}
