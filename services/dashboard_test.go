package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragwizard/models"
	"ragwizard/utils"
)

var sampleChatbots = []models.Chatbot{
	{ID: "1", Name: "Support Bot", SystemPrompt: "Answer billing questions"},
	{ID: "2", Name: "HR Helper", SystemPrompt: "You know the SUPPORT handbook"},
	{ID: "3", Name: "Sales", SystemPrompt: "Be persuasive"},
}

func ids(list []models.Chatbot) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestChatbotList_FilterMatchesNameOrPrompt(t *testing.T) {
	var list ChatbotList
	list.Set(sampleChatbots)

	list.ApplyFilter("support")
	assert.Equal(t, []string{"1", "2"}, ids(list.Filtered))

	list.ApplyFilter("  ")
	assert.Equal(t, []string{"1", "2", "3"}, ids(list.Filtered))

	list.ApplyFilter("nothing")
	assert.Empty(t, list.Filtered)
	assert.Len(t, list.All, 3)
}

func TestChatbotList_SetKeepsQuery(t *testing.T) {
	var list ChatbotList
	list.ApplyFilter("sales")
	list.Set(sampleChatbots)

	assert.Equal(t, []string{"3"}, ids(list.Filtered))
}

func TestChatbotList_RemoveKeepsOrder(t *testing.T) {
	var list ChatbotList
	list.Set(sampleChatbots)
	list.ApplyFilter("support")

	list.Remove("1")

	assert.Equal(t, []string{"2", "3"}, ids(list.All))
	assert.Equal(t, []string{"2"}, ids(list.Filtered))
}

func TestDashboard_DeleteFailureLeavesLists(t *testing.T) {
	backend := newFakeBackend()
	backend.chatbots = sampleChatbots
	dashboard := NewDashboard(backend, utils.NewNopLogger())
	ctx := context.Background()

	_, err := dashboard.Refresh(ctx)
	require.NoError(t, err)

	backend.deleteErr = &RemoteError{Op: "delete chatbot", StatusCode: 500}
	view, err := dashboard.Delete(ctx, "2")
	require.Error(t, err)
	assert.Len(t, view.All, 3)

	backend.deleteErr = nil
	view, err = dashboard.Delete(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(view.All))
	assert.Equal(t, []string{"2"}, backend.deleted)
}

func TestDashboard_RefreshFailureKeepsPreviousList(t *testing.T) {
	backend := newFakeBackend()
	backend.chatbots = sampleChatbots
	dashboard := NewDashboard(backend, utils.NewNopLogger())
	ctx := context.Background()

	_, err := dashboard.Refresh(ctx)
	require.NoError(t, err)
	dashboard.Filter("hr")

	backend.listErr = &NetworkError{Op: "list chatbots"}
	view, err := dashboard.Refresh(ctx)

	require.Error(t, err)
	assert.Len(t, view.All, 3)
	assert.Equal(t, []string{"2"}, ids(view.Filtered))
	assert.Equal(t, "hr", view.Query)
}
