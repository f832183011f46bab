package configuration

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	dErrors "commune/pkg/domain-errors"
	"commune/pkg/platform/sentinel"
)

// Store persists setting values per language. The empty language holds the
// language-neutral value.
type Store interface {
	Find(ctx context.Context, key, lang string) (string, error)
	Upsert(ctx context.Context, key, lang, value string) error
	Delete(ctx context.Context, key, lang string) error
}

// Service resolves settings with a fixed fallback order:
//
//  1. the value stored for the locale's base language
//  2. the language-neutral stored value
//  3. the setting default
//
// Resolved values are cached per (setting, language) until the setting is
// written or the cache is cleared.
type Service struct {
	store    Store
	logger   *slog.Logger
	defaults map[string]string

	mu    sync.RWMutex
	cache map[cacheKey]string
	// gens counts writes per setting and epoch counts ClearCache calls. A
	// lookup caches its result only if neither moved while it ran.
	gens  map[string]uint64
	epoch uint64
	group singleflight.Group
}

type cacheKey struct {
	setting string
	lang    string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefault overrides the built-in default of a setting, e.g. from the
// process environment.
func WithDefault(setting Setting, value string) Option {
	return func(s *Service) {
		if value != "" {
			s.defaults[setting.Key] = value
		}
	}
}

// New creates a configuration service backed by store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		defaults: make(map[string]string),
		cache:    make(map[cacheKey]string),
		gens:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value of setting for locale. It never fails: store errors
// are logged and the default is returned (and not cached).
func (s *Service) Get(ctx context.Context, setting Setting, locale language.Tag) string {
	key := cacheKey{setting: setting.Key, lang: languageOf(locale)}

	s.mu.RLock()
	v, ok := s.cache[key]
	gen, epoch := s.gens[key.setting], s.epoch
	s.mu.RUnlock()
	if ok {
		return v
	}

	// Lookups started before a write never share results with later ones.
	flight := key.setting + "|" + key.lang + "|" + strconv.FormatUint(gen, 10) + "." + strconv.FormatUint(epoch, 10)
	res, err, _ := s.group.Do(flight, func() (any, error) {
		return s.resolve(ctx, setting, key.lang)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load setting, using default",
			"setting", setting.Key,
			"language", key.lang,
			"error", err,
		)
		return s.defaultFor(setting)
	}

	value := res.(string)
	s.mu.Lock()
	if s.gens[key.setting] == gen && s.epoch == epoch {
		s.cache[key] = value
	}
	s.mu.Unlock()
	return value
}

// Set stores value for setting. An undetermined locale writes the
// language-neutral value.
func (s *Service) Set(ctx context.Context, setting Setting, locale language.Tag, value string) error {
	if strings.TrimSpace(setting.Key) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "setting key is required")
	}
	if err := s.store.Upsert(ctx, setting.Key, languageOf(locale), value); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store setting")
	}
	s.invalidate(setting.Key)
	return nil
}

// Reset removes the stored value for setting and locale.
func (s *Service) Reset(ctx context.Context, setting Setting, locale language.Tag) error {
	err := s.store.Delete(ctx, setting.Key, languageOf(locale))
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset setting")
	}
	s.invalidate(setting.Key)
	return nil
}

// ClearCache drops every cached value.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	clear(s.cache)
}

func (s *Service) resolve(ctx context.Context, setting Setting, lang string) (string, error) {
	if lang != "" {
		v, err := s.store.Find(ctx, setting.Key, lang)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return "", err
		}
	}
	v, err := s.store.Find(ctx, setting.Key, "")
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return "", err
	}
	return s.defaultFor(setting), nil
}

func (s *Service) defaultFor(setting Setting) string {
	if v, ok := s.defaults[setting.Key]; ok {
		return v
	}
	return setting.Default
}

// invalidate drops every cached language of a setting: a language-neutral
// write changes the fallback for all of them.
func (s *Service) invalidate(settingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[settingKey]++
	for k := range s.cache {
		if k.setting == settingKey {
			delete(s.cache, k)
		}
	}
}

func languageOf(locale language.Tag) string {
	if locale == language.Und {
		return ""
	}
	base, conf := locale.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
