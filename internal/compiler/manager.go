package compiler

import (
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bnema/ublock-network-filters/internal/logging"
	"github.com/bnema/ublock-network-filters/internal/models"
)

// RegexManager caches compiled regexes by filter id. Safe for concurrent use.
type RegexManager struct {
	mu     sync.RWMutex
	cache  map[uint64]*CompiledRegex
	group  singleflight.Group
	opts   Options
	logger *slog.Logger
}

// NewRegexManager creates an empty cache. A nil logger discards output.
func NewRegexManager(opts Options, logger *slog.Logger) *RegexManager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RegexManager{
		cache:  make(map[uint64]*CompiledRegex),
		opts:   opts,
		logger: logger,
	}
}

// GetOrCompile returns the regex for f, compiling it on first use
func (m *RegexManager) GetOrCompile(f *models.NetworkFilter) *CompiledRegex {
	m.mu.RLock()
	re, ok := m.cache[f.ID]
	m.mu.RUnlock()
	if ok {
		return re
	}

	v, _, _ := m.group.Do(strconv.FormatUint(f.ID, 16), func() (any, error) {
		m.mu.RLock()
		cached, ok := m.cache[f.ID]
		m.mu.RUnlock()
		if ok {
			return cached, nil
		}

		compiled := Compile(f.Filter, f.IsRightAnchor(), f.IsLeftAnchor(), f.IsCompleteRegex(), m.opts)
		if compiled.Kind() == KindParsingError {
			m.logger.Debug("regex compile failed", "filter", f.String(), "error", compiled.Err())
		}

		m.mu.Lock()
		m.cache[f.ID] = compiled
		m.mu.Unlock()
		return compiled, nil
	})
	return v.(*CompiledRegex)
}

// Len returns the number of cached regexes
func (m *RegexManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// Reset drops every cached regex, e.g. when the filter set is rebuilt
func (m *RegexManager) Reset() {
	m.mu.Lock()
	m.cache = make(map[uint64]*CompiledRegex)
	m.mu.Unlock()
}
