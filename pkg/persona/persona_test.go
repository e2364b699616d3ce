package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/cinebot/pkg/config"
)

const criticYAML = `
name: critic
display_name: The Critic
prompt: |
  You are a {{tone}} film critic for {{server}}.
model: gpt-4o-mini
max_tokens: 512
params:
  - name: server
    required: true
  - name: tone
    default: grumpy
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "critic.yaml", criticYAML)
	writeFile(t, dir, "noname.yml", "prompt: hi\n")
	writeFile(t, dir, "noprompt.yaml", "name: empty\n")
	writeFile(t, dir, "broken.yaml", "name: [\n")
	writeFile(t, dir, "notes.txt", "ignored")

	reg := NewRegistry()
	n, errs := reg.Load(dir)
	assert.Equal(t, 1, n)
	assert.Len(t, errs, 3)
	assert.Equal(t, []string{"critic"}, reg.Names())

	p, ok := reg.Get("critic")
	require.True(t, ok)
	assert.Equal(t, "The Critic", p.DisplayName)
	assert.Equal(t, filepath.Join(dir, "critic.yaml"), p.SourceFile)
}

func TestLoadDirsLaterWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "critic.yaml", "name: critic\nprompt: first\n")
	writeFile(t, second, "critic.yaml", "name: critic\nprompt: second\n")

	reg := NewRegistry()
	n, errs := reg.LoadDirs(first, filepath.Join(first, "missing"), "", second)
	assert.Equal(t, 2, n)
	assert.Empty(t, errs)

	p, _ := reg.Get("critic")
	assert.Equal(t, "second", p.Prompt)
}

func TestRender(t *testing.T) {
	p := &Persona{
		Name:   "critic",
		Prompt: "A {{tone}} critic for {{server}}.",
		Params: []Param{{Name: "server", Required: true}, {Name: "tone", Default: "grumpy"}},
	}

	tests := []struct {
		name     string
		provided map[string]string
		want     string
		wantErr  bool
	}{
		{"defaults", map[string]string{"server": "Film Club"}, "A grumpy critic for Film Club.", false},
		{"override default", map[string]string{"server": "Film Club", "tone": "dry"}, "A dry critic for Film Club.", false},
		{"missing required", nil, "", true},
		{"blank required", map[string]string{"server": "  "}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Render(tt.provided)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "critic.yaml", criticYAML)

	base := config.DefaultConfig().Chat
	base.PersonaDir = dir
	base.SystemPrompt = "plain"

	t.Run("no persona", func(t *testing.T) {
		out, warnings, err := Resolve(base)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, "plain", out.SystemPrompt)
	})

	t.Run("applies prompt and model", func(t *testing.T) {
		cfg := base
		cfg.Persona = "critic"
		cfg.PersonaParams = map[string]string{"server": "Film Club"}

		out, _, err := Resolve(cfg)
		require.NoError(t, err)
		assert.Equal(t, "You are a grumpy film critic for Film Club.", out.SystemPrompt)
		assert.Equal(t, "gpt-4o-mini", out.Model)
		assert.EqualValues(t, 512, out.MaxTokens)
	})

	t.Run("unknown persona", func(t *testing.T) {
		cfg := base
		cfg.Persona = "nobody"
		_, _, err := Resolve(cfg)
		assert.ErrorContains(t, err, "critic")
	})
}
