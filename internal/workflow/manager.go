package workflow

import (
	"log/slog"
	"sync"

	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/upload"
)

// Manager owns at most one Session per tenant and the analysis cache
// shared across session lifetimes. Opening a flow for a tenant whose
// session is still in flight returns that session instead of starting a
// second one.
type Manager struct {
	backend Backend
	uploads *upload.Pipeline
	logger  *slog.Logger
	onStage func(tenantID string, stage Stage)

	mu       sync.RWMutex
	sessions map[string]*Session
	cache    map[string]*models.CompletionAnalysis
}

// NewManager creates a session manager.
func NewManager(backend Backend, uploads *upload.Pipeline, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:  backend,
		uploads:  uploads,
		logger:   logger,
		sessions: make(map[string]*Session),
		cache:    make(map[string]*models.CompletionAnalysis),
	}
}

// SetStageObserver installs a callback invoked on every stage
// transition of every session. Must be called before Session is used.
func (m *Manager) SetStageObserver(fn func(tenantID string, stage Stage)) {
	m.onStage = fn
}

// Session returns the tenant's session, creating an idle one if none
// exists.
func (m *Manager) Session(tenantID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[tenantID]; ok {
		return s
	}

	var onStage func(Stage)
	if m.onStage != nil {
		onStage = func(stage Stage) { m.onStage(tenantID, stage) }
	}
	s := newSession(tenantID, m.backend, m.uploads, m, onStage, m.logger)
	m.sessions[tenantID] = s
	m.logger.Debug("session created", "tenant_id", tenantID)
	return s
}

// Close cancels and removes the tenant's session. Fails while a save is
// in flight.
func (m *Manager) Close(tenantID string) error {
	m.mu.Lock()
	s, ok := m.sessions[tenantID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.Cancel(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, tenantID)
	m.mu.Unlock()
	return nil
}

// GetAnalysis implements analysisCache.
func (m *Manager) GetAnalysis(tenantID string) *models.CompletionAnalysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache[tenantID]
}

// PutAnalysis implements analysisCache.
func (m *Manager) PutAnalysis(tenantID string, analysis *models.CompletionAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[tenantID] = analysis
}

// InvalidateAnalysis drops the cached analysis for a tenant.
func (m *Manager) InvalidateAnalysis(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, tenantID)
}
