package domain

import (
	"strings"

	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// DisplayInfo is the presentation metadata the portals render for an enum value.
type DisplayInfo struct {
	Value     string `json:"value"`
	Label     string `json:"label"`
	ColorHint string `json:"color,omitempty"`
}

var statusOrder = []TicketStatus{
	TicketStatusPending,
	TicketStatusProcessing,
	TicketStatusToBeEvaluated,
	TicketStatusCompleted,
	TicketStatusClosed,
	TicketStatusRejected,
}

var statusInfo = map[TicketStatus]DisplayInfo{
	TicketStatusPending:       {Value: string(TicketStatusPending), Label: "待受理", ColorHint: "orange"},
	TicketStatusProcessing:    {Value: string(TicketStatusProcessing), Label: "处理中", ColorHint: "blue"},
	TicketStatusToBeEvaluated: {Value: string(TicketStatusToBeEvaluated), Label: "待评价", ColorHint: "purple"},
	TicketStatusCompleted:     {Value: string(TicketStatusCompleted), Label: "已完成", ColorHint: "green"},
	TicketStatusClosed:        {Value: string(TicketStatusClosed), Label: "已关闭", ColorHint: "default"},
	TicketStatusRejected:      {Value: string(TicketStatusRejected), Label: "已驳回", ColorHint: "red"},
}

var categoryOrder = []TicketCategory{
	CategoryWaterAndElectricity,
	CategoryNetworkIssues,
	CategoryFurnitureRepair,
	CategoryApplianceIssues,
	CategoryPublicFacilities,
}

var categoryInfo = map[TicketCategory]DisplayInfo{
	CategoryWaterAndElectricity: {Value: string(CategoryWaterAndElectricity), Label: "水电维修"},
	CategoryNetworkIssues:       {Value: string(CategoryNetworkIssues), Label: "网络故障"},
	CategoryFurnitureRepair:     {Value: string(CategoryFurnitureRepair), Label: "家具维修"},
	CategoryApplianceIssues:     {Value: string(CategoryApplianceIssues), Label: "电器故障"},
	CategoryPublicFacilities:    {Value: string(CategoryPublicFacilities), Label: "公共设施"},
}

var priorityInfo = map[TicketPriority]DisplayInfo{
	TicketPriorityLow:    {Value: string(TicketPriorityLow), Label: "一般", ColorHint: "blue"},
	TicketPriorityMedium: {Value: string(TicketPriorityMedium), Label: "较紧急", ColorHint: "orange"},
	TicketPriorityHigh:   {Value: string(TicketPriorityHigh), Label: "紧急", ColorHint: "red"},
}

// Describe returns display metadata for a status. Any value outside the
// enum indicates corrupted data and yields UNKNOWN_STATUS.
func Describe(status TicketStatus) (DisplayInfo, error) {
	info, ok := statusInfo[status]
	if !ok {
		return DisplayInfo{}, apperrors.NewUnknownStatus(string(status))
	}
	return info, nil
}

// Statuses lists every status in lifecycle order.
func Statuses() []TicketStatus {
	return append([]TicketStatus(nil), statusOrder...)
}

// Categories lists every category in display order.
func Categories() []TicketCategory {
	return append([]TicketCategory(nil), categoryOrder...)
}

// DescribeCategory returns display metadata for a category.
func DescribeCategory(category TicketCategory) (DisplayInfo, bool) {
	info, ok := categoryInfo[category]
	return info, ok
}

// DescribePriority returns display metadata for a priority.
func DescribePriority(priority TicketPriority) (DisplayInfo, bool) {
	info, ok := priorityInfo[priority]
	return info, ok
}

// ParseStatus maps a wire value such as "REJECTED" onto the enum.
func ParseStatus(raw string) (TicketStatus, bool) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := statusInfo[status]
	return status, ok
}

// ParseCategory maps a wire value onto the closed category enum.
func ParseCategory(raw string) (TicketCategory, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, category := range categoryOrder {
		if strings.EqualFold(string(category), trimmed) {
			return category, true
		}
	}
	return "", false
}

// ParsePriority maps a wire value onto the priority enum.
func ParsePriority(raw string) (TicketPriority, bool) {
	priority := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := priorityInfo[priority]
	return priority, ok
}
