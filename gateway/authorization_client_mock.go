package gateway

import (
	"context"
	"sync"
)

type AuthorizationMock struct {
	mock sync.Mutex

	// DeniedActors lists actor ids that are refused; everyone else is allowed.
	DeniedActors map[string]bool

	Checks []AuthorizationCheck
}

type AuthorizationCheck struct {
	ActorID string
	EventID string
}

func (c *AuthorizationMock) IsAuthorizedToCheckIn(ctx context.Context, actorID, eventID string) (bool, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	c.Checks = append(c.Checks, AuthorizationCheck{ActorID: actorID, EventID: eventID})

	return !c.DeniedActors[actorID], nil
}
