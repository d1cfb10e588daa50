package domain

import "time"

// MissionStatus is the lifecycle of work owed to a mentor, professor or chef.
type MissionStatus string

const (
	MissionPending   MissionStatus = "PENDING"
	MissionValidated MissionStatus = "VALIDATED"
	MissionPaid      MissionStatus = "PAID"
	MissionCancelled MissionStatus = "CANCELLED"
)

// Mission is an amount owed to a team member for work performed.
type Mission struct {
	ID             string        `json:"id"`
	TeamMemberID   string        `json:"teamMemberId"`
	TeamMemberName string        `json:"teamMemberName"`
	Title          string        `json:"title"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	Status         MissionStatus `json:"status"`
	DueDate        *time.Time    `json:"dueDate,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// IsOutstanding reports whether the mission still has to be paid out.
func (m Mission) IsOutstanding() bool {
	return m.Status == MissionPending || m.Status == MissionValidated
}

// MissionAction is an admin action on a mission.
type MissionAction string

const (
	MissionValidate MissionAction = "validate"
	MissionPay      MissionAction = "pay"
	MissionCancel   MissionAction = "cancel"
)

// NextMissionStatus returns the status reached by applying action to current.
// Once validated a mission can only be paid or cancelled.
func NextMissionStatus(current MissionStatus, action MissionAction) (MissionStatus, error) {
	switch action {
	case MissionValidate:
		if current == MissionPending {
			return MissionValidated, nil
		}
	case MissionPay:
		if current == MissionValidated {
			return MissionPaid, nil
		}
	case MissionCancel:
		if current == MissionPending || current == MissionValidated {
			return MissionCancelled, nil
		}
	}
	return current, ErrInvalidTransition
}
