package notifications

import "hrleave/internal/domain/leave"

var subjects = map[leave.EventType]string{
	leave.EventSubmitted: "New leave request from %s",
	leave.EventApproved:  "Your leave request was approved",
	leave.EventRejected:  "Your leave request was rejected",
	leave.EventCancelled: "Leave request cancelled by %s",
	leave.EventUpdated:   "Leave request updated by %s",
	leave.EventCommented: "New comment on your leave request",
}
