package observability_test

import (
	"context"
	"testing"

	"github.com/maxbot-ai/dialogtree"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/observability"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountedBot(t *testing.T, hooks domain.LifecycleHooks) *dialogtree.Bot {
	t.Helper()
	def := &schema.Definition{
		Name: "counted",
		Dialog: []schema.NodeDef{
			{
				Condition: "intents.order",
				Label:     "order",
				SlotFilling: []schema.SlotDef{
					{Name: "item", CheckFor: "entities.item", Prompt: "Which item?"},
				},
				Response: "Ordering {{ slots.item }}.",
			},
			{Condition: "intents.help", Label: "help", Response: "Try ordering something."},
			{Condition: "anything_else", Response: "Hm?"},
		},
	}
	bot, err := dialogtree.New(def, dialogtree.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	return bot
}

func TestStats_CollectsCounters(t *testing.T) {
	stats := observability.NewStats()
	bot := newCountedBot(t, stats.Hooks())
	ctx := context.Background()

	_, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "s1", Intents: domain.Intents{"order": true},
	})
	require.NoError(t, err)

	_, err = bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "s1", Intents: domain.Intents{"help": true},
	})
	require.NoError(t, err)

	_, err = bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "s1",
		Entities:   domain.Entities{"item": {{Literal: "tea", Kind: domain.KindEnum, Value: "tea"}}},
	})
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, 3, snap.Turns)
	assert.Equal(t, 3, snap.Committed)
	assert.Equal(t, 0, snap.RolledBack)
	assert.Equal(t, 1, snap.SlotsFilled)
	assert.Equal(t, 1, snap.Digressions, "the help question interrupts slot-filling")
	assert.Equal(t, 1, snap.NodeVisits["order"])
	assert.Equal(t, 1, snap.NodeVisits["help"])
}

func TestMultiplex_FansOut(t *testing.T) {
	first := observability.NewStats()
	second := observability.NewStats()
	bot := newCountedBot(t, observability.Multiplex(first.Hooks(), second.Hooks()))

	_, err := bot.ProcessTurn(context.Background(), domain.TurnInput{
		SessionKey: "s1", Intents: domain.Intents{"help": true},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Snapshot().Turns)
	assert.Equal(t, 1, second.Snapshot().Turns)
}

func TestMultiplex_SkipsNilCallbacks(t *testing.T) {
	stats := observability.NewStats()
	// An empty hook set in the chain must not panic.
	bot := newCountedBot(t, observability.Multiplex(domain.LifecycleHooks{}, stats.Hooks()))

	_, err := bot.ProcessTurn(context.Background(), domain.TurnInput{
		SessionKey: "s1", Text: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Snapshot().Turns)
}
