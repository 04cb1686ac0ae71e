package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memberDTO struct {
	PrincipalID string `json:"principalId"`
	Role        string `json:"role"`
}

func TestTypedRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := MemberKey("p1", "w1")

	_, outcome := Get[memberDTO](ctx, c, key)
	assert.Equal(t, Miss, outcome)

	want := memberDTO{PrincipalID: "p1", Role: "editor"}
	require.NoError(t, Set(ctx, c, key, want, TTLMember))

	got, outcome := Get[memberDTO](ctx, c, key)
	assert.Equal(t, Hit, outcome)
	assert.Equal(t, want, got)
}

func TestNegativeSentinelDistinctFromMiss(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := MemberKey("p2", "w1")

	require.NoError(t, SetAbsent(ctx, c, key, TTLMember))

	_, outcome := Get[memberDTO](ctx, c, key)
	assert.Equal(t, HitAbsent, outcome, "cached absence is not a miss")
}

func TestSentinelExpiresToMiss(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	key := MemberKey("p3", "w1")

	require.NoError(t, SetAbsent(ctx, c, key, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, outcome := Get[memberDTO](ctx, c, key)
	assert.Equal(t, Miss, outcome)
}

func TestUndecodableEntryIsMiss(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	key := WorkspaceKey("w1")

	require.NoError(t, c.setRaw(ctx, key, []byte("not-json"), time.Minute))

	_, outcome := Get[memberDTO](ctx, c, key)
	assert.Equal(t, Miss, outcome)
}

func TestTypedMetricsRecorded(t *testing.T) {
	mr := newMockRecorder()
	c, _ := newTestClient(t)
	c.metrics = mr
	ctx := context.Background()

	Get[memberDTO](ctx, c, MemberKey("p1", "w1"))
	require.NoError(t, Set(ctx, c, MemberKey("p1", "w1"), memberDTO{}, TTLMember))
	Get[memberDTO](ctx, c, MemberKey("p1", "w1"))

	assert.Equal(t, 1, mr.misses["member"])
	assert.Equal(t, 1, mr.hits["member"])
}
