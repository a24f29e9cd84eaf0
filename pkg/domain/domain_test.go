package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestTriggerTable_Lookup(t *testing.T) {
	table := domain.TriggerTable{
		"account.open": "register_vp3",
		"loan.apply":   "loan_flow",
		"broken":       "",
	}

	id, ok := table.Lookup("account.open")
	assert.True(t, ok)
	assert.Equal(t, "register_vp3", id)

	// Exact match only
	_, ok = table.Lookup("Account.Open")
	assert.False(t, ok)
	_, ok = table.Lookup("account")
	assert.False(t, ok)

	// Empty intent and empty targets never match
	_, ok = table.Lookup("")
	assert.False(t, ok)
	_, ok = table.Lookup("broken")
	assert.False(t, ok)

	var nilTable domain.TriggerTable
	_, ok = nilTable.Lookup("account.open")
	assert.False(t, ok)
}

func TestTriggerTable_Components(t *testing.T) {
	table := domain.TriggerTable{
		"a": "one",
		"b": "one",
		"c": "two",
	}
	assert.ElementsMatch(t, []string{"one", "two"}, table.Components())
}

func TestControlState(t *testing.T) {
	s := domain.NewControlState("s1")
	assert.False(t, s.IsOwned())
	assert.Equal(t, "Unowned", s.String())

	s.Owner = "register_vp3"
	assert.True(t, s.IsOwned())
	assert.True(t, s.OwnedBy("register_vp3"))
	assert.False(t, s.OwnedBy("other"))
	assert.False(t, s.OwnedBy(""))
	assert.Equal(t, "OwnedBy(register_vp3)", s.String())

	snap := s.Snapshot()
	snap.Owner = ""
	assert.Equal(t, "register_vp3", s.Owner, "snapshot must not alias the original")
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("dialogflow: %w", domain.ErrClassificationUnavailable), domain.KindClassificationUnavailable},
		{fmt.Errorf("resolve x: %w", domain.ErrComponentNotFound), domain.KindComponentNotFound},
		{fmt.Errorf("x: %w", domain.ErrTurnProcessingFailed), domain.KindTurnProcessingFailed},
		{domain.ErrMalformedRequest, domain.KindMalformedRequest},
		{errors.New("boom"), domain.KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.ErrorKind(tc.err), "err=%v", tc.err)
	}
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnHandoff: func(ctx context.Context, e *domain.TransitionEvent) { calls = append(calls, "a:"+e.ComponentID) },
	}
	b := domain.LifecycleHooks{
		OnHandoff: func(ctx context.Context, e *domain.TransitionEvent) { calls = append(calls, "b:"+e.ComponentID) },
	}

	merged := a.Merge(b, domain.LifecycleHooks{})
	merged.OnHandoff(context.Background(), &domain.TransitionEvent{ComponentID: "c"})
	// Unset callbacks are safe to call.
	merged.OnRelease(context.Background(), &domain.TransitionEvent{})

	assert.Equal(t, []string{"a:c", "b:c"}, calls)
}
