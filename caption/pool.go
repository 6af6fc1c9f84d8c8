package caption

import (
	"context"
	"sync"
	"time"

	"humorize/utils"

	"github.com/rs/zerolog/log"
)

// Clock returns the current time
type Clock func() time.Time

type KeyStatus struct {
	Index       int       `json:"index"`
	Fingerprint string    `json:"fingerprint"`
	Usable      bool      `json:"usable"`
	UsableAfter time.Time `json:"usable_after,omitempty"`
}

// KeyPool hands out API keys in round-robin order, skipping quarantined ones.
// Every selection is a load-modify-save of the StateStore under mu.
type KeyPool struct {
	keys         []string
	fingerprints []string
	store        StateStore
	quarantine   time.Duration
	now          Clock

	mu     sync.Mutex
	cached State // last state seen, used if the store is unavailable
}

func NewKeyPool(keys []string, store StateStore, quarantine time.Duration, now Clock) (*KeyPool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	if now == nil {
		now = time.Now
	}
	p := &KeyPool{
		keys:       append([]string(nil), keys...),
		store:      store,
		quarantine: quarantine,
		now:        now,
		cached:     State{Quarantine: map[string]time.Time{}},
	}
	for _, k := range keys {
		p.fingerprints = append(p.fingerprints, Fingerprint(k))
	}
	return p, nil
}

// Fingerprint identifies a key in persisted state without storing the key itself
func Fingerprint(key string) string {
	return utils.Sha512String(key)[:32]
}

func (p *KeyPool) Len() int {
	return len(p.keys)
}

func (p *KeyPool) load(ctx context.Context) State {
	state, err := p.store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("caption key state unavailable, using last known state")
		return p.cached.clone()
	}
	if state.Quarantine == nil {
		state.Quarantine = map[string]time.Time{}
	}
	return state
}

func (p *KeyPool) save(ctx context.Context, state State) {
	p.cached = state.clone()
	if err := p.store.Save(ctx, state); err != nil {
		log.Warn().Err(err).Msg("cannot persist caption key state")
	}
}

func purgeExpired(state State, now time.Time) {
	for hash, until := range state.Quarantine {
		if !now.Before(until) {
			delete(state.Quarantine, hash)
		}
	}
}

// Select returns the next usable key that is not in tried, and advances the cursor past it
func (p *KeyPool) Select(ctx context.Context, tried map[int]bool) (int, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	state := p.load(ctx)
	purgeExpired(state, now)

	n := len(p.keys)
	start := state.Cursor % n
	if start < 0 {
		start += n
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if tried[idx] {
			continue
		}
		if until, ok := state.Quarantine[p.fingerprints[idx]]; ok && now.Before(until) {
			continue
		}
		state.Cursor = (idx + 1) % n
		p.save(ctx, state)
		return idx, p.keys[idx], nil
	}
	p.save(ctx, state)
	return -1, "", ErrAllCredentialsExhausted
}

// Quarantine makes the key at idx unusable for the pool's quarantine period
func (p *KeyPool) Quarantine(ctx context.Context, idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.load(ctx)
	until := p.now().Add(p.quarantine)
	state.Quarantine[p.fingerprints[idx]] = until
	p.save(ctx, state)
	quarantinedTotal.Inc()
	log.Warn().Int("key", idx).Time("until", until).Msg("caption key quarantined")
}

func (p *KeyPool) Status(ctx context.Context) []KeyStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	state := p.load(ctx)
	result := make([]KeyStatus, 0, len(p.keys))
	for i, fp := range p.fingerprints {
		st := KeyStatus{Index: i, Fingerprint: fp[:12], Usable: true}
		if until, ok := state.Quarantine[fp]; ok && now.Before(until) {
			st.Usable = false
			st.UsableAfter = until
		}
		result = append(result, st)
	}
	return result
}

// Reset lifts every quarantine and rewinds the cursor
func (p *KeyPool) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := State{Quarantine: map[string]time.Time{}}
	p.cached = state
	return p.store.Save(ctx, state)
}
