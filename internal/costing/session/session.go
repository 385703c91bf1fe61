// Package session keeps one costing workspace per console session: its own
// rate catalog, resource directory and row view.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/costing/internal/clock"
	"github.com/smallbiznis/costing/internal/config"
	costingdomain "github.com/smallbiznis/costing/internal/costing/domain"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	"github.com/smallbiznis/costing/internal/ratecatalog"
	"github.com/smallbiznis/costing/internal/resourcedirectory"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultIdleTTL = 30 * time.Minute

// Loader is the slice of the billing store the session caches load through.
type Loader interface {
	ratecatalog.Loader
	resourcedirectory.Loader
}

// Session is one console's workspace. Caches are never shared across
// sessions.
type Session struct {
	Token string
	OrgID snowflake.ID

	rates     *ratecatalog.Cache
	resources *resourcedirectory.Cache
	view      *costingdomain.View

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Workspace() costingdomain.Workspace {
	return costingdomain.Workspace{
		Rates:     s.rates,
		Resources: s.resources,
		View:      s.view,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

type ManagerParam struct {
	fx.In

	Log     *zap.Logger
	Clock   clock.Clock
	Config  *config.CostingConfigHolder
	Loader  Loader
	Metrics *metrics.Metrics `optional:"true"`
}

// Manager maps session tokens to sessions and expires idle ones.
type Manager struct {
	log     *zap.Logger
	clock   clock.Clock
	cfg     *config.CostingConfigHolder
	loader  Loader
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(p ManagerParam) *Manager {
	return &Manager{
		log:      p.Log.Named("costing.session"),
		clock:    p.Clock,
		cfg:      p.Config,
		loader:   p.Loader,
		metrics:  p.Metrics,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for token within orgID, starting a new one when
// the token is blank, unknown or expired. created reports a new session.
func (m *Manager) Get(orgID snowflake.ID, token string) (sess *Session, created bool) {
	now := m.clock.Now()
	token = strings.TrimSpace(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != "" {
		if existing, ok := m.sessions[key(orgID, token)]; ok {
			if existing.idleSince(now) < m.idleTTL() {
				existing.touch(now)
				return existing, false
			}
			delete(m.sessions, key(orgID, token))
		}
	}

	sess = &Session{
		Token:     uuid.NewString(),
		OrgID:     orgID,
		rates:     ratecatalog.New(m.loader, m.metrics),
		resources: resourcedirectory.New(m.loader),
		view:      costingdomain.NewView(),
		lastSeen:  now,
	}
	m.sessions[key(orgID, sess.Token)] = sess
	m.log.Debug("session started",
		zap.String("org_id", orgID.String()),
		zap.String("session", sess.Token),
	)
	return sess, true
}

// Reset drops a session so the next request starts with empty caches.
func (m *Manager) Reset(orgID snowflake.ID, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(orgID, strings.TrimSpace(token))
	if _, ok := m.sessions[k]; !ok {
		return false
	}
	delete(m.sessions, k)
	return true
}

// Sweep removes sessions idle for longer than the configured TTL.
func (m *Manager) Sweep() int {
	now := m.clock.Now()
	ttl := m.idleTTL()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, sess := range m.sessions {
		if sess.idleSince(now) >= ttl {
			delete(m.sessions, k)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) idleTTL() time.Duration {
	if m.cfg == nil {
		return defaultIdleTTL
	}
	if ttl := m.cfg.Get().Session.IdleTTL; ttl > 0 {
		return ttl
	}
	return defaultIdleTTL
}

func key(orgID snowflake.ID, token string) string {
	return orgID.String() + "|" + token
}

// RegisterJanitor sweeps idle sessions in the background while the app runs.
func RegisterJanitor(lc fx.Lifecycle, m *Manager) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})
			go func() {
				defer close(done)
				m.runJanitor(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func (m *Manager) runJanitor(ctx context.Context) {
	interval := m.idleTTL() / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				m.log.Debug("idle sessions expired", zap.Int("count", removed))
			}
		}
	}
}
