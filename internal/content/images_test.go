package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Images(t *testing.T) {
	root, store := setupTestProject(t)
	images := filepath.Join(root, "source", "images")
	writeFile(t, filepath.Join(images, "cat.png"), "cat")
	writeFile(t, filepath.Join(images, "dog.jpg"), "dog")
	writeFile(t, filepath.Join(images, "readme.md"), "not an image")
	writeFile(t, filepath.Join(root, "source", "_posts", "pets.md"),
		"---\ntitle: Pets\ndate: 2024-01-01\nmainImage: /images/dog.jpg\n---\n\n![cat](/images/cat.png)\n")
	writeFile(t, filepath.Join(root, "source", "about.md"),
		"---\ntitle: About\n---\n\n![cat](images/cat.png?v=2)\n")

	list, err := store.ListImages()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "cat.png", list[0].Name)
	assert.Equal(t, "/images/cat.png", list[0].URL)
	assert.Equal(t, "source/images/cat.png", list[0].ID)
	assert.Equal(t, int64(3), list[0].Size)
	assert.ElementsMatch(t, []string{"source/_posts/pets.md", "source/about.md"}, list[0].UsedBy)

	assert.Equal(t, "dog.jpg", list[1].Name)
	assert.Equal(t, []string{"source/_posts/pets.md"}, list[1].UsedBy)
}

func TestStore_ListImages_NoDirectory(t *testing.T) {
	_, store := setupTestProject(t)

	list, err := store.ListImages()
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStore_CopyImage(t *testing.T) {
	root, store := setupTestProject(t)
	src := filepath.Join(t.TempDir(), "photo.png")
	writeFile(t, src, "pixels")

	first, err := store.CopyImage(src)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", first.Name)
	assert.Empty(t, first.UsedBy)

	second, err := store.CopyImage(src)
	require.NoError(t, err)
	assert.Equal(t, "photo-1.png", second.Name)

	data, err := os.ReadFile(filepath.Join(root, "source", "images", "photo-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	_, err = store.CopyImage(filepath.Join(t.TempDir(), "doc.pdf"))
	assert.Error(t, err)

	_, err = store.CopyImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, errors.Is(err, ErrIO), "got %v", err)
}

func TestStore_DeleteImage(t *testing.T) {
	root, store := setupTestProject(t)
	images := filepath.Join(root, "source", "images")
	writeFile(t, filepath.Join(images, "used.png"), "u")
	writeFile(t, filepath.Join(images, "free.png"), "f")
	writeFile(t, filepath.Join(root, "source", "_posts", "p.md"),
		"---\ntitle: P\ndate: 2024-01-01\n---\n\n![x](/images/used.png)\n")

	require.NoError(t, store.DeleteImage("free.png", false))
	assert.NoFileExists(t, filepath.Join(images, "free.png"))

	err := store.DeleteImage("used.png", false)
	assert.True(t, errors.Is(err, ErrImageInUse), "got %v", err)
	assert.Contains(t, err.Error(), "source/_posts/p.md")
	assert.FileExists(t, filepath.Join(images, "used.png"))

	require.NoError(t, store.DeleteImage("used.png", true))
	assert.NoFileExists(t, filepath.Join(images, "used.png"))

	assert.True(t, errors.Is(store.DeleteImage("gone.png", false), ErrNotFound))
	assert.Error(t, store.DeleteImage("../_config.yml", true))
	assert.Error(t, store.DeleteImage("", true))
}

func TestNormalizeImageRef(t *testing.T) {
	tests := map[string]string{
		"/images/a.png":             "/images/a.png",
		"images/a.png":              "/images/a.png",
		"../images/a.png#frag":      "/images/a.png",
		"/images/sub/a.png":         "",
		"https://cdn.example/a.png": "",
		"/img/a.png":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeImageRef(in), in)
	}
}
