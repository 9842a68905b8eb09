package dialogtree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxbot-ai/dialogtree"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const museumYAML = `
name: museum
dialog:
  - condition: intents.tickets
    label: tickets
    slot_filling:
      - name: visitors
        check_for: entities.number
        prompt: "How many tickets?"
    response: "That makes {{ slots.visitors }} tickets, see you soon!"
  - condition: intents.opening_hours
    response: "Open 10:00 to 18:00, closed Mondays."
  - condition: "rpc.method == 'notify_closure'"
    response: "Heads up, we are closed on {{ rpc.params.date }}."
  - condition: anything_else
    response: "I can sell tickets and answer questions."
rpc:
  - method: notify_closure
    params:
      - name: date
        required: true
`

func newMuseumBot(t *testing.T) *dialogtree.Bot {
	t.Helper()
	def, err := schema.Load([]byte(museumYAML))
	require.NoError(t, err)
	bot, err := dialogtree.New(def)
	require.NoError(t, err)
	return bot
}

func tickets(n float64) domain.Entities {
	return domain.Entities{"number": {{Literal: "n", Kind: domain.KindNumber, Value: n}}}
}

func TestBot_Conversation(t *testing.T) {
	bot := newMuseumBot(t)
	ctx := context.Background()

	out, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "visitor-1",
		Text:       "two tickets please",
		Intents:    domain.Intents{"tickets": true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"How many tickets?"}, out.Texts)

	// Committed state survives across facade calls.
	out, err = bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "visitor-1",
		Text:       "two",
		Entities:   tickets(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"That makes 2 tickets, see you soon!"}, out.Texts)

	sess, err := bot.Session(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), sess.Slots["visitors"])
	assert.Nil(t, sess.ActivePath)
}

func TestBot_SessionsAreIsolated(t *testing.T) {
	bot := newMuseumBot(t)
	ctx := context.Background()

	_, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "a", Intents: domain.Intents{"tickets": true},
	})
	require.NoError(t, err)

	out, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "b", Text: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"I can sell tickets and answer questions."}, out.Texts)

	keys, err := bot.Sessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestBot_ResetSession(t *testing.T) {
	bot := newMuseumBot(t)
	ctx := context.Background()

	_, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "visitor-1", Intents: domain.Intents{"tickets": true},
	})
	require.NoError(t, err)
	require.NoError(t, bot.ResetSession(ctx, "visitor-1"))

	_, err = bot.Session(ctx, "visitor-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// A reset mid flow starts over instead of resuming the prompt.
	out, err := bot.ProcessTurn(ctx, domain.TurnInput{
		SessionKey: "visitor-1", Text: "two", Entities: tickets(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"I can sell tickets and answer questions."}, out.Texts)
}

func TestBot_RPC(t *testing.T) {
	bot := newMuseumBot(t)
	ctx := context.Background()

	out, err := bot.ProcessRPC(ctx, domain.RPCInput{
		SessionKey: "visitor-1",
		Method:     "notify_closure",
		Params:     map[string]any{"date": "2026-09-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Heads up, we are closed on 2026-09-01."}, out.Texts)
}

func TestBot_RPCValidation(t *testing.T) {
	bot := newMuseumBot(t)
	ctx := context.Background()

	_, err := bot.ProcessRPC(ctx, domain.RPCInput{SessionKey: "v", Method: "fire_alarm"})
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)

	_, err = bot.ProcessRPC(ctx, domain.RPCInput{SessionKey: "v", Method: "notify_closure"})
	var reqErr *domain.RequiredParamError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, []string{"date"}, reqErr.Params)

	// Rejected triggers never create session state.
	keys, err := bot.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBot_RequiresSessionKey(t *testing.T) {
	bot := newMuseumBot(t)
	_, err := bot.ProcessTurn(context.Background(), domain.TurnInput{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrMissingSessionKey)

	_, err = bot.ProcessRPC(context.Background(), domain.RPCInput{Method: "notify_closure"})
	assert.ErrorIs(t, err, domain.ErrMissingSessionKey)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "museum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(museumYAML), 0o644))

	bot, err := dialogtree.Open(path, dialogtree.WithName("front-desk"))
	require.NoError(t, err)
	assert.Equal(t, "front-desk", bot.Name())
	assert.Equal(t, "museum", bot.Definition().Name)
	assert.Equal(t, 4, bot.Graph().Len())

	_, err = dialogtree.Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNew_RejectsInvalidDefinition(t *testing.T) {
	def := &schema.Definition{
		Name: "bad",
		Dialog: []schema.NodeDef{
			{Condition: "intents.a", SlotHandlers: []schema.HandlerDef{
				{Condition: "intents.exit", JumpTo: "nowhere"},
			}},
		},
	}
	_, err := dialogtree.New(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `jump target "nowhere" does not exist`)
}
