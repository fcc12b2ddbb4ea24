package identity

import (
	"errors"
	"testing"
)

type mockState struct {
	byAlias map[string]*AliasRecord
	byAddr  map[[20]byte]string
}

func newMockState() *mockState {
	return &mockState{
		byAlias: make(map[string]*AliasRecord),
		byAddr:  make(map[[20]byte]string),
	}
}

func (m *mockState) AliasGet(alias string) (*AliasRecord, bool, error) {
	record, ok := m.byAlias[alias]
	if !ok {
		return nil, false, nil
	}
	copied := *record
	return &copied, true, nil
}

func (m *mockState) AliasPut(record *AliasRecord) error {
	copied := *record
	m.byAlias[record.Alias] = &copied
	m.byAddr[record.Address] = record.Alias
	return nil
}

func (m *mockState) AliasByAddress(addr [20]byte) (string, bool, error) {
	alias, ok := m.byAddr[addr]
	return alias, ok, nil
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestRegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	registry.SetState(newMockState())
	owner := addr(1)

	got, err := registry.Register(owner, " Alice.Pesa ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got != "alice.pesa" {
		t.Fatalf("normalized alias = %q, want %q", got, "alice.pesa")
	}
	resolved, err := registry.Resolve("ALICE.PESA")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved != owner {
		t.Fatalf("resolved wrong address")
	}
	alias, ok, err := registry.ReverseLookup(owner)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if !ok || alias != "alice.pesa" {
		t.Fatalf("reverse lookup = (%q, %v)", alias, ok)
	}
}

func TestRegisterTakenAlias(t *testing.T) {
	registry := NewRegistry()
	registry.SetState(newMockState())

	if _, err := registry.Register(addr(1), "alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Register(addr(2), "alice"); !errors.Is(err, ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
	// Re-registering an owned alias is allowed.
	if _, err := registry.Register(addr(1), "alice"); err != nil {
		t.Fatalf("re-register own alias: %v", err)
	}
}

func TestResolveUnknownAlias(t *testing.T) {
	registry := NewRegistry()
	registry.SetState(newMockState())
	if _, err := registry.Resolve("nobody"); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("expected ErrAliasNotFound, got %v", err)
	}
}

func TestNormalizeAlias(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Alice", want: "alice"},
		{in: "a.b-c_9", want: "a.b-c_9"},
		{in: "ab", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "waytoolongaliaswaytoolongaliasxxx", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeAlias(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAlias) {
				t.Fatalf("NormalizeAlias(%q): expected ErrInvalidAlias, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeAlias(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeAlias(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
