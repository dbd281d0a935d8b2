// Package dashboard aggregates the stores into the admin and student overviews.
package dashboard

import (
	"github.com/hostelhq/hostel/core/announcement"
	"github.com/hostelhq/hostel/core/inventory"
	"github.com/hostelhq/hostel/core/leave"
	"github.com/hostelhq/hostel/core/maintenance"
	"github.com/hostelhq/hostel/core/user"
)

const latestAnnouncements = 5

type AdminSummary struct {
	Students            int                         `json:"students"`
	Announcements       int                         `json:"announcements"`
	InventoryItems      int                         `json:"inventoryItems"`
	ActiveInventory     int                         `json:"activeInventory"`
	LeaveRequests       int                         `json:"leaveRequests"`
	LeavesByStatus      map[string]int              `json:"leavesByStatus"`
	MaintenanceRequests int                         `json:"maintenanceRequests"`
	MaintenanceByStatus map[string]int              `json:"maintenanceByStatus"`
	LatestAnnouncements []announcement.Announcement `json:"latestAnnouncements"`
}

type StudentSummary struct {
	Leaves              []leave.Request             `json:"leaves"`
	ApprovedLeaves      []leave.Request             `json:"approvedLeaves"`
	RoomMaintenance     []maintenance.Request       `json:"roomMaintenance"`
	LatestAnnouncements []announcement.Announcement `json:"latestAnnouncements"`
}

type Service struct {
	users         *user.Service
	announcements *announcement.Service
	inventory     *inventory.Service
	leaves        *leave.Service
	maintenance   *maintenance.Service
}

func NewService(
	users *user.Service,
	announcements *announcement.Service,
	inventory *inventory.Service,
	leaves *leave.Service,
	maintenance *maintenance.Service,
) *Service {
	return &Service{
		users:         users,
		announcements: announcements,
		inventory:     inventory,
		leaves:        leaves,
		maintenance:   maintenance,
	}
}

func (svc *Service) Admin() AdminSummary {
	leavesByStatus := svc.leaves.CountByStatus()
	maintenanceByStatus := svc.maintenance.CountByStatus()
	return AdminSummary{
		Students:            len(svc.users.Filter(user.QueryFilter{Roles: user.StudentRoles})),
		Announcements:       svc.announcements.Count(),
		InventoryItems:      svc.inventory.Count(),
		ActiveInventory:     len(svc.inventory.Filter(inventory.StatusActive)),
		LeaveRequests:       sum(leavesByStatus),
		LeavesByStatus:      leavesByStatus,
		MaintenanceRequests: sum(maintenanceByStatus),
		MaintenanceByStatus: maintenanceByStatus,
		LatestAnnouncements: svc.announcements.Latest(latestAnnouncements),
	}
}

func (svc *Service) Student(student user.User) StudentSummary {
	summary := StudentSummary{
		Leaves:              svc.leaves.StudentLeaves(student.ID),
		ApprovedLeaves:      svc.leaves.Filter(leave.QueryFilter{StudentID: student.ID, Status: leave.StatusApproved}),
		RoomMaintenance:     []maintenance.Request{},
		LatestAnnouncements: svc.announcements.Latest(latestAnnouncements),
	}
	if student.RoomNumber != "" {
		summary.RoomMaintenance = svc.maintenance.RoomRequests(student.RoomNumber)
	}
	return summary
}

func sum(counts map[string]int) int {
	var total int
	for _, n := range counts {
		total += n
	}
	return total
}
