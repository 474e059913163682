package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/events"
	"badgehub/internal/models"
	"badgehub/internal/validation"

	"go.uber.org/zap"
)

const presenceKeyPrefix = "presence:char:"

// presenceService tracks character sessions in the cache. Entries expire by
// TTL, so an abandoned session disappears without explicit cleanup.
type presenceService struct {
	cache  cache.Cache
	hub    *events.Hub
	ttl    time.Duration
	logger *zap.Logger
}

// NewPresenceService creates the presence tracker.
func NewPresenceService(c cache.Cache, hub *events.Hub, ttl time.Duration, logger *zap.Logger) PresenceService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &presenceService{cache: c, hub: hub, ttl: ttl, logger: logger}
}

func presenceKey(charname string) string {
	return presenceKeyPrefix + charname
}

func (s *presenceService) Register(ctx context.Context, req *RegisterPresenceRequest) (*models.Presence, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid presence registration", err)
	}

	presence := &models.Presence{
		Username:   req.Username,
		Charname:   req.Charname,
		WorkingDir: req.WorkingDir,
		IsActive:   true,
		LastSeen:   time.Now().UTC(),
	}
	if err := s.store(ctx, presence); err != nil {
		return nil, err
	}

	s.hub.Publish(events.Event{
		Type:     events.TypePresenceRegistered,
		Charname: presence.Charname,
		Payload:  presence,
	})
	s.logger.Info("Presence registered",
		zap.String("charname", presence.Charname),
		zap.String("username", presence.Username),
		zap.String("working_dir", presence.WorkingDir),
	)
	return presence, nil
}

func (s *presenceService) Heartbeat(ctx context.Context, charname string) (*models.Presence, error) {
	presence, err := s.GetByCharname(ctx, charname)
	if err != nil {
		return nil, err
	}

	presence.LastSeen = time.Now().UTC()
	if err := s.store(ctx, presence); err != nil {
		return nil, err
	}

	s.hub.Publish(events.Event{
		Type:     events.TypePresenceHeartbeat,
		Charname: presence.Charname,
		Payload:  presence,
	})
	return presence, nil
}

func (s *presenceService) Deregister(ctx context.Context, charname string) error {
	if charname == "" {
		return NewValidationError("charname is required", nil)
	}

	// Deregistering an unknown character is a no-op; the TTL may already
	// have removed it.
	if err := s.cache.Delete(ctx, presenceKey(charname)); err != nil {
		return fmt.Errorf("delete presence: %w", err)
	}

	s.hub.Publish(events.Event{
		Type:     events.TypePresenceDeregistered,
		Charname: charname,
	})
	s.logger.Info("Presence deregistered", zap.String("charname", charname))
	return nil
}

func (s *presenceService) GetByCharname(ctx context.Context, charname string) (*models.Presence, error) {
	if charname == "" {
		return nil, NewValidationError("charname is required", nil)
	}

	data, ok := s.cache.Get(ctx, presenceKey(charname))
	if !ok {
		return nil, NewNotFoundError(fmt.Sprintf("no active session for %q", charname))
	}

	var presence models.Presence
	if err := json.Unmarshal(data, &presence); err != nil {
		return nil, fmt.Errorf("decode presence for %q: %w", charname, err)
	}
	return &presence, nil
}

func (s *presenceService) ListActive(ctx context.Context) (*ActiveRosterResponse, error) {
	return s.roster(ctx, "")
}

func (s *presenceService) ListActiveByWorkingDir(ctx context.Context, workingDir string) (*ActiveRosterResponse, error) {
	if workingDir == "" {
		return nil, NewValidationError("working directory is required", nil)
	}
	return s.roster(ctx, workingDir)
}

func (s *presenceService) roster(ctx context.Context, workingDir string) (*ActiveRosterResponse, error) {
	keys, err := s.cache.Keys(ctx, presenceKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list presence keys: %w", err)
	}

	active := make([]*models.Presence, 0, len(keys))
	for _, key := range keys {
		data, ok := s.cache.Get(ctx, key)
		if !ok {
			continue // expired between scan and read
		}
		var presence models.Presence
		if err := json.Unmarshal(data, &presence); err != nil {
			s.logger.Warn("Skipping unreadable presence entry",
				zap.String("key", key), zap.Error(err))
			continue
		}
		if workingDir != "" && presence.WorkingDir != workingDir {
			continue
		}
		active = append(active, &presence)
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].Charname < active[j].Charname
	})
	return &ActiveRosterResponse{Active: active}, nil
}

func (s *presenceService) store(ctx context.Context, presence *models.Presence) error {
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}
	if err := s.cache.Set(ctx, presenceKey(presence.Charname), data, s.ttl); err != nil {
		return fmt.Errorf("store presence: %w", err)
	}
	return nil
}
