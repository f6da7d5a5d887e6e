package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
)

// fakeProvider is a scriptable provider for chain tests.
type fakeProvider struct {
	name    string
	err     error
	reply   string
	calls   int
	closed  bool
	closeFn error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _ Request) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Content: f.reply, Provider: f.name}, nil
}

func (f *fakeProvider) Close() error {
	f.closed = true
	return f.closeFn
}

func providerNames(c *Chain) []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

func userRequest(text string) Request {
	return Request{
		Messages: []Message{{Role: RoleUser, Content: text}},
	}
}

func TestRequestLastUserMessage(t *testing.T) {
	t.Run("returns final user turn", func(t *testing.T) {
		req := Request{Messages: []Message{
			{Role: RoleUser, Content: "first"},
			{Role: RoleAssistant, Content: "reply"},
			{Role: RoleUser, Content: "second"},
		}}
		assert.Equal(t, "second", req.LastUserMessage())
	})

	t.Run("skips trailing assistant turn", func(t *testing.T) {
		req := Request{Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi"},
		}}
		assert.Equal(t, "hello", req.LastUserMessage())
	})

	t.Run("empty when no user turns", func(t *testing.T) {
		assert.Empty(t, Request{}.LastUserMessage())
	})
}

func TestChainGenerate(t *testing.T) {
	t.Run("returns first success", func(t *testing.T) {
		first := &fakeProvider{name: "first", reply: "hello"}
		second := &fakeProvider{name: "second", reply: "unused"}
		chain := NewChain([]Provider{first, second}, logging.NewNop())

		resp, err := chain.Generate(context.Background(), userRequest("hi"))
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Content)
		assert.Equal(t, "first", resp.Provider)
		assert.Zero(t, second.calls)
	})

	t.Run("falls through on failure", func(t *testing.T) {
		broken := &fakeProvider{name: "broken", err: errors.New("connection refused")}
		backup := &fakeProvider{name: "backup", reply: "fallback reply"}
		chain := NewChain([]Provider{broken, backup}, logging.NewNop())

		resp, err := chain.Generate(context.Background(), userRequest("hi"))
		require.NoError(t, err)
		assert.Equal(t, "backup", resp.Provider)
		assert.Equal(t, 1, broken.calls)
	})

	t.Run("template terminates the chain", func(t *testing.T) {
		broken := &fakeProvider{name: "broken", err: errors.New("model not loaded")}
		chain := NewChain([]Provider{broken, NewTemplateProvider()}, logging.NewNop())

		resp, err := chain.Generate(context.Background(), userRequest("I feel low"))
		require.NoError(t, err)
		assert.Equal(t, "template", resp.Provider)
		assert.NotEmpty(t, resp.Content)
	})

	t.Run("all providers fail", func(t *testing.T) {
		chain := NewChain([]Provider{
			&fakeProvider{name: "a", err: errors.New("down")},
			&fakeProvider{name: "b", err: errors.New("also down")},
		}, logging.NewNop())

		_, err := chain.Generate(context.Background(), userRequest("hi"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGenerationFailed)
	})

	t.Run("empty prompt short-circuits", func(t *testing.T) {
		backup := &fakeProvider{name: "backup", reply: "unused"}
		chain := NewChain([]Provider{NewTemplateProvider(), backup}, logging.NewNop())

		_, err := chain.Generate(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Zero(t, backup.calls)
	})
}

func TestChainClose(t *testing.T) {
	first := &fakeProvider{name: "first"}
	second := &fakeProvider{name: "second", closeFn: errors.New("close failed")}
	chain := NewChain([]Provider{first, second}, logging.NewNop())

	err := chain.Close()
	require.Error(t, err)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestTemplateProvider(t *testing.T) {
	p := NewTemplateProvider()

	t.Run("references memories", func(t *testing.T) {
		req := userRequest("I'm having a rough day")
		req.Memories = []string{"picnic by the lake", "finished my first 5k"}

		resp, err := p.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "template", resp.Provider)
		assert.Contains(t, resp.Content, "1. picnic by the lake")
		assert.Contains(t, resp.Content, "2. finished my first 5k")
	})

	t.Run("suggests breathing without memories", func(t *testing.T) {
		resp, err := p.Generate(context.Background(), userRequest("I'm anxious"))
		require.NoError(t, err)
		assert.Contains(t, resp.Content, "breathing")
	})

	t.Run("deterministic", func(t *testing.T) {
		req := userRequest("hello")
		a, err := p.Generate(context.Background(), req)
		require.NoError(t, err)
		b, err := p.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, a.Content, b.Content)
	})

	t.Run("rejects empty prompt", func(t *testing.T) {
		_, err := p.Generate(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})
}

func TestNew(t *testing.T) {
	t.Run("template provider alone", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Provider = "template"

		chain, err := New(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "template", chain.Name())
	})

	t.Run("ollama primary with template fallback", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Provider = "ollama"

		chain, err := New(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "ollama", chain.Name())
	})

	t.Run("gemini joins the chain when its key is set", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Provider = "ollama"
		cfg.Gemini.APIKey = config.Secret("test-key")

		chain, err := New(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []string{"ollama", "gemini", "template"}, providerNames(chain))
	})

	t.Run("explicit order is honored", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Order = []string{"gemini", "ollama"}
		cfg.Gemini.APIKey = config.Secret("test-key")

		chain, err := New(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.Equal(t, []string{"gemini", "ollama", "template"}, providerNames(chain))
	})

	t.Run("unknown order entry", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Order = []string{"claude"}

		_, err := New(cfg, logging.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("gemini requires api key", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Provider = "gemini"

		_, err := New(cfg, logging.NewNop())
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig().LLM
		cfg.Provider = "bogus"

		_, err := New(cfg, logging.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
