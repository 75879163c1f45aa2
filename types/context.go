package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyAgentID contextKey = "agent_id"
	keyCycleID contextKey = "cycle_id"
)

// WithAgentID adds the owning agent ID to context.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, keyAgentID, agentID)
}

// AgentID extracts the owning agent ID from context.
func AgentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyAgentID).(string)
	return v, ok && v != ""
}

// WithCycleID adds the planning cycle ID to context.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, keyCycleID, cycleID)
}

// CycleID extracts the planning cycle ID from context.
func CycleID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyCycleID).(string)
	return v, ok && v != ""
}
