package engagement

import "context"

// StatusRepository is the port to the service that persists status events.
type StatusRepository interface {
	ListStatuses(ctx context.Context, customerID string) ([]StatusEvent, error)
	CreateStatus(ctx context.Context, customerID string, step Step, status StatusType, notes string) (*StatusEvent, error)
	UpdateStatus(ctx context.Context, customerID, statusID string, status StatusType, notes string) (*StatusEvent, error)
	AvailableSteps(ctx context.Context) (Labels, error)
	AvailableStatuses(ctx context.Context) (map[StatusType]string, error)
}
