package identity

import (
	"time"

	"pesachain/core/events"
)

type registryState interface {
	AliasGet(alias string) (*AliasRecord, bool, error)
	AliasPut(record *AliasRecord) error
	AliasByAddress(addr [20]byte) (string, bool, error)
}

// Registry maps human-readable usernames to addresses. One alias per address;
// re-registering an owned alias is a no-op, claiming a new one releases the
// old binding's reverse entry by overwriting it.
type Registry struct {
	state   registryState
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry creates an alias registry.
func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// SetEmitter configures the event emitter used by the registry. Passing nil
// resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(evt events.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

// Register binds the alias to the address. Fails with ErrAliasTaken when the
// alias belongs to a different address; registering an alias the caller
// already owns refreshes its update timestamp.
func (r *Registry) Register(addr [20]byte, alias string) (string, error) {
	if r == nil || r.state == nil {
		return "", ErrAliasNotFound
	}
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return "", err
	}
	now := uint64(r.nowFn())
	existing, ok, err := r.state.AliasGet(normalized)
	if err != nil {
		return "", err
	}
	if ok {
		if existing.Address != addr {
			return "", ErrAliasTaken
		}
		existing.UpdatedAt = now
		if err := r.state.AliasPut(existing); err != nil {
			return "", err
		}
		return normalized, nil
	}
	record := &AliasRecord{Alias: normalized, Address: addr, CreatedAt: now, UpdatedAt: now}
	if err := r.state.AliasPut(record); err != nil {
		return "", err
	}
	r.emit(events.AliasRegistered{Alias: normalized, Address: addr})
	return normalized, nil
}

// Resolve returns the address bound to the alias.
func (r *Registry) Resolve(alias string) ([20]byte, error) {
	var zero [20]byte
	if r == nil || r.state == nil {
		return zero, ErrAliasNotFound
	}
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return zero, err
	}
	record, ok, err := r.state.AliasGet(normalized)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrAliasNotFound
	}
	return record.Address, nil
}

// ReverseLookup returns the alias owned by the address, if any.
func (r *Registry) ReverseLookup(addr [20]byte) (string, bool, error) {
	if r == nil || r.state == nil {
		return "", false, ErrAliasNotFound
	}
	return r.state.AliasByAddress(addr)
}
