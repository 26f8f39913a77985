package leave

import "time"

type EventType string

const (
	EventSubmitted EventType = "leave.submitted"
	EventApproved  EventType = "leave.approved"
	EventRejected  EventType = "leave.rejected"
	EventCancelled EventType = "leave.cancelled"
	EventUpdated   EventType = "leave.updated"
	EventDeleted   EventType = "leave.deleted"
	EventCommented EventType = "leave.commented"
)

type Event struct {
	Type          EventType `json:"type"`
	RequestID     string    `json:"requestId"`
	EmployeeID    string    `json:"employeeId"`
	EmployeeName  string    `json:"employeeName"`
	EmployeeEmail string    `json:"employeeEmail,omitempty"`
	Category      Category  `json:"category"`
	Status        Status    `json:"status"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	TotalDays     float64   `json:"totalDays"`
	ActorID       string    `json:"actorId"`
	ActorName     string    `json:"actorName,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func newEvent(eventType EventType, req Request, actorID, actorName string, at time.Time) Event {
	return Event{
		Type:         eventType,
		RequestID:    req.ID,
		EmployeeID:   req.EmployeeID,
		EmployeeName: req.EmployeeName,
		Category:     req.Category,
		Status:       req.Status,
		From:         req.From.Format(DateLayout),
		To:           req.To.Format(DateLayout),
		TotalDays:    req.TotalDays,
		ActorID:      actorID,
		ActorName:    actorName,
		OccurredAt:   at,
	}
}
