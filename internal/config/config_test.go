package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProject = `{
  "site": {"url": "https://example.com/", "name": "Example"},
  "meta": {
    "home": {"title": "{{site.name}}"},
    "item": {"title": "{{item.title}}", "slug": "{{item.title}}"},
    "pages": {"about": {"title": "About"}}
  },
  "settings": {
    "theme": "multiverse",
    "slug": {"item": "movies"},
    "data": {"multiple": true, "imgcolumn": "image", "saveimg": true},
    "sitemap": true
  }
}`

func TestParseAppliesDefaults(t *testing.T) {
	p, err := Parse([]byte(validProject))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", p.SiteURL())
	assert.Equal(t, "uploads", p.Settings.Slug.Upload)
	assert.Equal(t, "movies", p.Settings.Slug.Item)
	assert.Equal(t, "sitemap", p.Settings.Slug.Sitemap)
	assert.Equal(t, ",", p.Settings.Data.Delimiter)
	assert.True(t, p.Settings.Data.Multiple)
	assert.Contains(t, p.Meta.Pages, "about")

	fields := p.Fields()
	settings := fields["settings"].(map[string]any)
	slug := settings["slug"].(map[string]any)
	assert.Equal(t, "uploads", slug["upload"], "templates see defaulted slug segments")
	assert.Equal(t, "Example", fields["site"].(map[string]any)["name"])
}

func TestParseValidation(t *testing.T) {
	_, err := Parse([]byte(`{"site": {}, "settings": {"data": {"saveimg": true, "delimiter": ";;"}}}`))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 4)
	assert.Contains(t, err.Error(), "site.url is required")
	assert.Contains(t, err.Error(), "settings.theme is required")
}

func TestParseRejectsEscapingSegments(t *testing.T) {
	_, err := Parse([]byte(`{"site": {"url": "u"}, "settings": {"theme": "t", "slug": {"item": "../x"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings.slug.item")
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{`))
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(validProject), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("CTH_SITE_URL=https://staging.example.com\n"), 0644))
	t.Setenv(EnvSiteURL, "")
	os.Unsetenv(EnvSiteURL)
	t.Cleanup(func() { os.Unsetenv(EnvSiteURL) })

	p, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", p.SiteURL())
	assert.Equal(t, "https://staging.example.com", p.Fields()["site"].(map[string]any)["url"])
}

func TestLoadExistingEnvWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(validProject), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("CTH_THEME=fromfile\n"), 0644))
	t.Setenv(EnvTheme, "fromenv")

	p, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", p.Settings.Theme)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read config file")
}

func TestOverwriteAllows(t *testing.T) {
	assert.False(t, OverwriteNone.Allows(OverwritePage))
	assert.True(t, OverwriteAll.Allows(OverwriteImage))
	assert.True(t, OverwriteAll.Allows(OverwriteAll))
	assert.True(t, OverwriteImage.Allows(OverwriteImage))
	assert.False(t, OverwriteImage.Allows(OverwritePage))
	assert.False(t, OverwritePage.Allows(OverwriteAll), "only 'all' satisfies the all-only rule")

	_, err := ParseOverwrite("everything")
	require.Error(t, err)

	var o Overwrite
	require.NoError(t, o.Set("item"))
	assert.Equal(t, OverwriteItem, o)
}

func TestCheckProject(t *testing.T) {
	root := t.TempDir()
	err := CheckProject(root)
	require.ErrorIs(t, err, ErrNotProject)
	assert.Contains(t, err.Error(), "project.json")

	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("{}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, DataDir), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(root, ThemesDir), 0755))
	require.NoError(t, CheckProject(root))
	assert.False(t, IsInitialized(root))

	for _, d := range []string{DistDir, HooksDir, PagesDir} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0755))
	}
	assert.True(t, IsInitialized(root))
}

func TestNewLayout(t *testing.T) {
	l := NewLayout("/p", Settings{Theme: "t", Slug: SlugSettings{Upload: "u", Item: "i", Sitemap: "s"}})
	assert.Equal(t, filepath.Join("/p", "dist", "u"), l.Upload)
	assert.Equal(t, filepath.Join("/p", "dist", "i"), l.Item)
	assert.Equal(t, filepath.Join("/p", "themes", "t", "home.hbs"), l.ThemeFile("home.hbs"))
}
