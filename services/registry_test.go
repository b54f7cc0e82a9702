package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragwizard/models"
	"ragwizard/utils"
)

func TestWizardRegistry_ReusesLiveOrchestrator(t *testing.T) {
	registry := NewWizardRegistry(NewMemorySessionStore(time.Hour), newFakeBackend(), testOptions(), time.Hour, utils.NewNopLogger())
	ctx := context.Background()

	first, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)
	second, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, models.StepInitialize, first.Session().CurrentStep)
}

func TestWizardRegistry_ResumesFromStore(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	registry := NewWizardRegistry(store, newFakeBackend(), testOptions(), time.Hour, utils.NewNopLogger())
	ctx := context.Background()

	o, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)
	_, err = o.CreateChatbot(ctx, "Bot", "Prompt")
	require.NoError(t, err)

	registry.Forget("sess-1")
	assert.Zero(t, registry.Len())

	resumed, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotSame(t, o, resumed)
	assert.Equal(t, models.StepDocuments, resumed.Session().CurrentStep)
	assert.Equal(t, "bot-1", resumed.Session().ChatbotID)
}

func TestWizardRegistry_ResumesPolling(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	backend := newFakeBackend()
	backend.statusFn = statusSequence(models.ChatbotProcessing, models.ChatbotReady)
	ctx := context.Background()

	s := models.NewWizardSession("sess-1")
	s.CurrentStep = models.StepDocuments
	s.ChatbotID = "bot-1"
	s.Polling = true
	s.PollGeneration = 1
	require.NoError(t, store.Save(ctx, s))

	registry := NewWizardRegistry(store, backend, testOptions(), time.Hour, utils.NewNopLogger())
	o, err := registry.Get(ctx, "sess-1")
	require.NoError(t, err)

	final := o.WaitForPoll()
	assert.Equal(t, models.StepTest, final.CurrentStep)
	assert.Equal(t, 2, backend.StatusCalls())
}
