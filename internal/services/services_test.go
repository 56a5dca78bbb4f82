package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/catgpt/internal/config"
)

func TestInitializeServices(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("CATGPT_API_URL", "http://backend.test:9000/")
	defer config.SetFile(config.File{})()

	s, err := InitializeServices(context.Background())
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.GetChatService())
	assert.NotNil(t, s.GetExpenseService())
	assert.NotNil(t, s.GetFlowRunService())
	assert.NotNil(t, s.GetSessionService())
	assert.NotNil(t, s.GetWatchers())
	assert.Equal(t, "http://backend.test:9000", s.catgptService.BaseURL())
	assert.Empty(t, s.GetSessionService().Sessions())
}
