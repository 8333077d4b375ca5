package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator produces new session identifiers
type Generator interface {
	NewSessionID(ctx context.Context) (string, error)
}

// LocalGenerator builds time-based session ids without contacting the gateway
type LocalGenerator struct {
	Now func() time.Time
}

// NewSessionID returns an id of the form session_<unix>_<8 hex chars>
func (g LocalGenerator) NewSessionID(ctx context.Context) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("session_%d_%s", now().Unix(), suffix), nil
}

// Creator registers a new agent session with the gateway
type Creator interface {
	CreateSession(ctx context.Context) (string, error)
}

// RemoteGenerator asks the gateway to issue the session id
type RemoteGenerator struct {
	Creator Creator
}

// NewSessionID creates a session on the gateway and returns its id
func (g RemoteGenerator) NewSessionID(ctx context.Context) (string, error) {
	if g.Creator == nil {
		return "", errors.New("remote session generator requires a creator")
	}
	id, err := g.Creator.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create remote session: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("gateway returned an empty session id")
	}
	return id, nil
}
