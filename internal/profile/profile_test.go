package profile

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		p := &Profile{Mode: "nonsense", Data: t.TempDir()}
		require.NoError(t, p.Validate())

		assert.Equal(t, "dev", p.Mode)
		assert.Equal(t, "sqlite", p.Driver)
		assert.Equal(t, filepath.Join(p.Data, "therapist_dev.db"), p.DSN)
		assert.NotEmpty(t, p.Secret)
	})

	t.Run("KeepsExplicitValues", func(t *testing.T) {
		p := &Profile{Mode: "prod", Data: t.TempDir(), DSN: "custom.db", Secret: "s3cret"}
		require.NoError(t, p.Validate())

		assert.Equal(t, "prod", p.Mode)
		assert.Equal(t, "custom.db", p.DSN)
		assert.Equal(t, "s3cret", p.Secret)
	})

	t.Run("MissingDataDir", func(t *testing.T) {
		p := &Profile{Data: "/no/such/directory"}
		assert.Error(t, p.Validate())
	})
}

func TestNew(t *testing.T) {
	v := viper.New()
	v.Set("data", t.TempDir())
	v.Set("port", 9000)

	p, err := New(v)
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 9000, p.Port)
	assert.Equal(t, "https://api.openai.com/v1", p.AIBaseURL)
	assert.Equal(t, "gpt-4o-mini", p.AIChatModel)
	assert.False(t, p.IsAIEnabled())
	assert.True(t, p.IsDev())
}
