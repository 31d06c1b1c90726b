package admission

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Chative-core-poc-v1/router/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
)

// TenantStore is the process-wide tenant configuration map. Configs are
// created lazily with defaults and only ever handed out as copies.
type TenantStore struct {
	mu       sync.RWMutex
	tenants  map[string]model.TenantConfig
	defaults model.TenantDefaultsConfig
	validate *validator.Validate
}

func NewTenantStore(defaults model.TenantDefaultsConfig) *TenantStore {
	return &TenantStore{
		tenants:  make(map[string]model.TenantConfig),
		defaults: defaults,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Defaults returns the config a new tenant would start with. Admin updates
// decode onto it so omitted fields keep their defaults.
func (s *TenantStore) Defaults(tenantID string) model.TenantConfig {
	return model.DefaultTenantConfig(tenantID, s.defaults)
}

// Get returns the tenant's config, creating the default on first sight.
func (s *TenantStore) Get(tenantID string) model.TenantConfig {
	s.mu.RLock()
	cfg, ok := s.tenants[tenantID]
	s.mu.RUnlock()
	if ok {
		return cfg.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok = s.tenants[tenantID]; !ok {
		cfg = model.DefaultTenantConfig(tenantID, s.defaults)
		s.tenants[tenantID] = cfg
	}
	return cfg.Clone()
}

// Put validates and replaces a tenant's config.
func (s *TenantStore) Put(cfg model.TenantConfig) (model.TenantConfig, error) {
	if err := s.Validate(cfg); err != nil {
		return model.TenantConfig{}, err
	}
	stored := cfg.Clone()
	s.mu.Lock()
	s.tenants[cfg.TenantID] = stored
	s.mu.Unlock()
	return stored.Clone(), nil
}

// Validate checks struct constraints and that every regex rule compiles.
func (s *TenantStore) Validate(cfg model.TenantConfig) error {
	if err := s.validate.Struct(cfg); err != nil {
		return errx.InvalidConfig(err)
	}
	for i, rule := range cfg.RefusalRules {
		if rule.Type != model.RuleRegex {
			continue
		}
		if _, err := regexp.Compile("(?i)" + rule.Pattern); err != nil {
			return errx.InvalidConfig(fmt.Errorf("refusal_rules[%d]: %w", i, err))
		}
	}
	return nil
}
