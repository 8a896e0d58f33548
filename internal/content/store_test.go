package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhamdeew/hex-tool/internal/filesystem"
	"github.com/rhamdeew/hex-tool/internal/hexo"
	"github.com/rhamdeew/hex-tool/internal/logging"
)

func setupTestProject(t *testing.T) (string, *Store) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "_config.yml"), "title: Test\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "source", "_posts"), 0o755))

	project, err := hexo.Open(root)
	require.NoError(t, err)

	store := NewStore(project, filesystem.New(root, nil), logging.ForTest(t))
	store.now = func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local) }
	return project.Root(), store
}

func post(title, date, body string) string {
	return "---\ntitle: " + title + "\ndate: " + date + "\n---\n\n" + body + "\n"
}

func TestStore_List(t *testing.T) {
	root, store := setupTestProject(t)
	posts := filepath.Join(root, "source", "_posts")
	writeFile(t, filepath.Join(posts, "old.md"), post("Old", "2023-01-01", "old"))
	writeFile(t, filepath.Join(posts, "new.md"), post("New", "2024-06-01 10:00:00", "new"))
	writeFile(t, filepath.Join(posts, "mid.md"), post("Mid", "2023-06-01", "mid"))
	writeFile(t, filepath.Join(posts, "broken.md"), "no frontmatter here")
	writeFile(t, filepath.Join(posts, "notes.txt"), post("Txt", "2025-01-01", "txt"))
	writeFile(t, filepath.Join(posts, "nested", "deep.md"), post("Deep", "2025-01-01", "deep"))

	entities, err := store.List(KindPost)
	require.NoError(t, err)

	var titles []string
	for _, e := range entities {
		titles = append(titles, e.Title)
		assert.Equal(t, KindPost, e.Kind)
	}
	assert.Equal(t, []string{"New", "Mid", "Old"}, titles)
}

func TestStore_ListPagesAndDrafts(t *testing.T) {
	root, store := setupTestProject(t)
	writeFile(t, filepath.Join(root, "source", "about.md"), post("About", "2024-01-01", "me"))
	writeFile(t, filepath.Join(root, "source", "_posts", "p.md"), post("Post", "2024-01-01", "p"))

	pages, err := store.List(KindPage)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "source/about.md", pages[0].ID)

	drafts, err := store.List(KindDraft)
	require.NoError(t, err)
	assert.NotNil(t, drafts)
	assert.Empty(t, drafts)
}

func TestStore_GetSave(t *testing.T) {
	root, store := setupTestProject(t)
	writeFile(t, filepath.Join(root, "source", "_posts", "hello.md"), helloDoc)

	e, err := store.Get(KindPost, "source/_posts/hello.md")
	require.NoError(t, err)

	fm := e.Frontmatter.Clone()
	fm.Title = "Hello again"
	fm.Custom.Set("layout", "post")
	saved, err := store.Save(e.Edit(fm, "Updated body."))
	require.NoError(t, err)

	assert.Equal(t, "Hello again", saved.Title)
	assert.Equal(t, "Updated body.", saved.Content)
	v, ok := saved.Frontmatter.Custom.Get("layout")
	assert.True(t, ok)
	assert.Equal(t, "post", v)

	data, err := os.ReadFile(filepath.Join(root, "source", "_posts", "hello.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Hello again")
	assert.Contains(t, string(data), "\n\nUpdated body.\n")
}

func TestStore_GetErrors(t *testing.T) {
	_, store := setupTestProject(t)

	_, err := store.Get(KindPost, "source/_posts/missing.md")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	_, err = store.Get(KindPost, "../../etc/passwd")
	assert.True(t, errors.Is(err, filesystem.ErrOutsideRoot), "got %v", err)

	_, err = store.Get(KindPost, "source/about.md")
	assert.Error(t, err, "a page is not a post")

	_, err = store.Get(KindPost, "source/_posts/image.png")
	assert.Error(t, err)
}

func TestStore_SaveRejectsForeignIDs(t *testing.T) {
	_, store := setupTestProject(t)

	_, err := store.Save(Entity{ID: "../escape.md", Kind: KindPost})
	assert.Error(t, err)

	_, err = store.Save(Entity{ID: "_config.yml", Kind: KindPage})
	assert.Error(t, err)
}

func TestStore_Create(t *testing.T) {
	root, store := setupTestProject(t)

	e, err := store.Create(KindPost, "Hello World")
	require.NoError(t, err)

	assert.Equal(t, "source/_posts/hello-world.md", e.ID)
	assert.Equal(t, "Hello World", e.Title)
	assert.Equal(t, "2024-03-04 05:06:07", e.Date)
	assert.Empty(t, e.Content)
	assert.FileExists(t, filepath.Join(root, "source", "_posts", "hello-world.md"))

	_, err = store.Create(KindPost, "hello world!")
	assert.True(t, errors.Is(err, ErrExists), "got %v", err)

	draft, err := store.Create(KindDraft, "Hello World")
	require.NoError(t, err)
	assert.Equal(t, "source/_drafts/hello-world.md", draft.ID)
}

func TestStore_Delete(t *testing.T) {
	root, store := setupTestProject(t)
	path := filepath.Join(root, "source", "_posts", "bye.md")
	writeFile(t, path, post("Bye", "2024-01-01", "x"))

	require.NoError(t, store.Delete(KindPost, "source/_posts/bye.md"))
	assert.NoFileExists(t, path)

	err := store.Delete(KindPost, "source/_posts/bye.md")
	assert.True(t, errors.Is(err, ErrIO), "got %v", err)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestStore_Publish(t *testing.T) {
	root, store := setupTestProject(t)
	writeFile(t, filepath.Join(root, "source", "_drafts", "wip.md"), "---\ntitle: WIP\n---\n\nSoon.\n")

	published, err := store.Publish("source/_drafts/wip.md")
	require.NoError(t, err)

	assert.Equal(t, KindPost, published.Kind)
	assert.Equal(t, "source/_posts/wip.md", published.ID)
	assert.Equal(t, "2024-03-04 05:06:07", published.Date)
	assert.Equal(t, "Soon.", published.Content)
	assert.NoFileExists(t, filepath.Join(root, "source", "_drafts", "wip.md"))

	t.Run("keeps an existing date", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "source", "_drafts", "dated.md"), post("Dated", "2020-01-01", "x"))
		p, err := store.Publish("source/_drafts/dated.md")
		require.NoError(t, err)
		assert.Equal(t, "2020-01-01", p.Date)
	})

	t.Run("refuses to overwrite a post", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "source", "_drafts", "wip.md"), post("Again", "2020-01-01", "x"))
		_, err := store.Publish("source/_drafts/wip.md")
		assert.True(t, errors.Is(err, ErrExists), "got %v", err)
		assert.FileExists(t, filepath.Join(root, "source", "_drafts", "wip.md"))
	})
}

func TestSortNewestFirst_FallsBackToModTime(t *testing.T) {
	entities := []Entity{
		{ID: "a", Date: "", ModifiedAt: 100},
		{ID: "b", Date: "not a date", ModifiedAt: 300},
		{ID: "c", Date: "1960-01-01", ModifiedAt: 999},
	}
	SortNewestFirst(entities)
	assert.Equal(t, []string{"b", "a", "c"}, []string{entities[0].ID, entities[1].ID, entities[2].ID})
}
