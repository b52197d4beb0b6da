package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
	opts   domain.GenerateOptions
}

func (f *fakeGenerator) Complete(_ context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	f.prompt, f.opts = prompt, opts
	return f.reply, f.err
}

func TestComposeGrounded(t *testing.T) {
	gen := &fakeGenerator{reply: "  Blue, due to Rayleigh scattering. "}
	c := New(logger.NewNop(), gen, Config{Model: "gpt-test"})
	chunks := []domain.Chunk{
		{ID: "k1", Kind: domain.KindKnowledge, Content: "Rayleigh scattering favors short wavelengths."},
		{ID: "k2", Kind: domain.KindKnowledge, Content: "Blue light has a short wavelength."},
	}

	ans, err := c.Compose(context.Background(), "Why is the sky blue?", chunks)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGrounded, ans.Source)
	assert.Equal(t, "Blue, due to Rayleigh scattering.", ans.Text)
	assert.Len(t, ans.Context, 2)

	assert.Contains(t, gen.prompt, "Rayleigh scattering favors short wavelengths.\nBlue light has a short wavelength.")
	assert.Contains(t, gen.prompt, "Why is the sky blue?")
	assert.Equal(t, 0.4, gen.opts.Temperature)
	assert.Equal(t, "gpt-test", gen.opts.Model)
}

func TestComposeKeepsExplicitZeroTemperature(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	zero := 0.0
	_, err := New(logger.NewNop(), gen, Config{Temperature: &zero}).Compose(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gen.opts.Temperature)
}

func TestComposeFallbackHasNoContext(t *testing.T) {
	gen := &fakeGenerator{reply: "General answer"}
	ans, err := New(logger.NewNop(), gen, Config{}).Compose(context.Background(), "What is ESR?", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, ans.Source)
	assert.Nil(t, ans.Context)
	assert.Contains(t, gen.prompt, "No matching material was found")
}

func TestComposeGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 500")}
	_, err := New(logger.NewNop(), gen, Config{}).Compose(context.Background(), "q", nil)
	assert.Equal(t, apierr.CodeGenerationFailed, apierr.CodeOf(err))
}
