package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKind(t *testing.T) {
	err := &Error{Kind: KindTimeout, Provider: "openai", Model: "gpt", Message: "deadline"}

	assert.True(t, IsKind(err, KindTimeout))
	assert.False(t, IsKind(err, KindRateLimited))

	// Works through wrapping.
	wrapped := fmt.Errorf("node failed: %w", err)
	assert.True(t, IsKind(wrapped, KindTimeout))

	assert.False(t, IsKind(errors.New("plain"), KindTimeout))
	assert.False(t, IsKind(nil, KindTimeout))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindInvalidCredentials, Provider: "openai", Model: "gpt", Message: "bad key"}
	assert.Equal(t, "provider openai (gpt): invalid-credentials: bad key", err.Error())
}

func TestStaticClient(t *testing.T) {
	t.Run("scripted responses by prompt substring", func(t *testing.T) {
		c := &StaticClient{Responses: map[string]string{"poem": "roses are red"}}

		resp, err := c.Generate(context.Background(), Request{Prompt: "write a poem please"})
		require.NoError(t, err)
		assert.Equal(t, "roses are red", resp.Text)
	})

	t.Run("echoes unmatched prompts", func(t *testing.T) {
		c := &StaticClient{}
		resp, err := c.Generate(context.Background(), Request{Prompt: "anything"})
		require.NoError(t, err)
		assert.Equal(t, "anything", resp.Text)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := &StaticClient{}
		_, err := c.Generate(ctx, Request{Prompt: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("transcribe reads the payload transcript", func(t *testing.T) {
		c := &StaticClient{}
		resp, err := c.Transcribe(context.Background(), Request{
			Payload: map[string]any{"transcript": "hello world"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello world", resp.Text)
	})
}
