package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"leadpipe/internal/messaging"

	"github.com/redis/go-redis/v9"
)

// Settings are the WhatsApp integration credentials and the simulation flag.
// APIKey and Instance are the live sender's access token and phone id.
type Settings struct {
	APIKey         string `json:"api_key"`
	Instance       string `json:"instance"`
	PhoneNumber    string `json:"phone_number"`
	SimulationMode bool   `json:"simulation_mode"`
}

// Redacted hides the API key for read endpoints.
func (s Settings) Redacted() Settings {
	if len(s.APIKey) > 4 {
		s.APIKey = strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
	} else if s.APIKey != "" {
		s.APIKey = "****"
	}
	return s
}

type Update struct {
	APIKey         *string `json:"api_key"`
	Instance       *string `json:"instance"`
	PhoneNumber    *string `json:"phone_number"`
	SimulationMode *bool   `json:"simulation_mode"`
}

func (u Update) apply(s Settings) Settings {
	if u.APIKey != nil {
		s.APIKey = strings.TrimSpace(*u.APIKey)
	}
	if u.Instance != nil {
		s.Instance = strings.TrimSpace(*u.Instance)
	}
	if u.PhoneNumber != nil {
		s.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}
	if u.SimulationMode != nil {
		s.SimulationMode = *u.SimulationMode
	}
	return s
}

// Store is a key-value settings backend. Load reports found=false when nothing is stored yet.
type Store interface {
	Load(ctx context.Context) (s Settings, found bool, err error)
	Save(ctx context.Context, s Settings) error
}

type Service struct {
	store    Store
	defaults Settings
	mu       sync.Mutex
}

func NewService(store Store, defaults Settings) *Service {
	return &Service{store: store, defaults: defaults}
}

func (s *Service) Get(ctx context.Context) (Settings, error) {
	v, found, err := s.store.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return s.defaults, nil
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, u Update) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	next := u.apply(cur)
	if err := s.store.Save(ctx, next); err != nil {
		return Settings{}, err
	}
	return next, nil
}

// SimulationMode matches messaging.ModeFunc.
// Credentials feeds the live WhatsApp sender.
func (s *Service) Credentials(ctx context.Context) (messaging.Credentials, error) {
	v, err := s.Get(ctx)
	if err != nil {
		return messaging.Credentials{}, err
	}
	return messaging.Credentials{AccessToken: v.APIKey, PhoneID: v.Instance}, nil
}

func (s *Service) SimulationMode(ctx context.Context) (bool, error) {
	v, err := s.Get(ctx)
	if err != nil {
		return true, err
	}
	return v.SimulationMode, nil
}

type MemoryStore struct {
	mu    sync.Mutex
	v     Settings
	found bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v, m.found, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v, m.found = s, true
	return nil
}

// RedisStore keeps settings in one hash so every API instance sees the same flag.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "leadpipe:settings"
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (Settings, bool, error) {
	if r.rdb == nil {
		return Settings{}, false, errors.New("settings: redis client is nil")
	}
	h, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Settings{}, false, err
	}
	if len(h) == 0 {
		return Settings{}, false, nil
	}
	return fromHash(h), true, nil
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	if r.rdb == nil {
		return errors.New("settings: redis client is nil")
	}
	return r.rdb.HSet(ctx, r.key, toHash(s)).Err()
}

func toHash(s Settings) map[string]any {
	return map[string]any{
		"api_key":         s.APIKey,
		"instance":        s.Instance,
		"phone_number":    s.PhoneNumber,
		"simulation_mode": strconv.FormatBool(s.SimulationMode),
	}
}

func fromHash(h map[string]string) Settings {
	sim, err := strconv.ParseBool(h["simulation_mode"])
	if err != nil {
		sim = true
	}
	return Settings{
		APIKey:         h["api_key"],
		Instance:       h["instance"],
		PhoneNumber:    h["phone_number"],
		SimulationMode: sim,
	}
}
