package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/security"
)

func sampleBook() entities.Book {
	return entities.Book{
		Title:     "1984",
		Author:    "George Orwell",
		Pages:     intPtr(328),
		ReadPages: intPtr(150),
		Year:      intPtr(1949),
		Status:    entities.BookStatusInProgress,
		Rating:    intPtr(4),
		Review:    "Disturbingly relevant even today",
	}
}

func TestBooksController_ListBooks(t *testing.T) {
	t.Run("renders every book", func(t *testing.T) {
		second := sampleBook()
		second.Title = "Dune"
		env := newTestEnv(t, newMockBookStore(sampleBook(), second))

		rr := env.get("/")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "1984;Dune;")
	})

	t.Run("empty library", func(t *testing.T) {
		env := newTestEnv(t, newMockBookStore())

		rr := env.get("/")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("storage fault", func(t *testing.T) {
		store := newMockBookStore()
		store.listErr = errStorage
		env := newTestEnv(t, store)

		rr := env.get("/")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Server Error", rr.Body.String())
		assert.NotContains(t, rr.Body.String(), errStorage.Error())
	})
}

func TestBooksController_ViewBook(t *testing.T) {
	env := newTestEnv(t, newMockBookStore(sampleBook()))

	t.Run("found", func(t *testing.T) {
		rr := env.get("/book/1")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "1984 by George Orwell")
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := env.get("/book/abc")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid book ID")
	})

	t.Run("absent", func(t *testing.T) {
		rr := env.get("/book/99")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"Book not found"}`, rr.Body.String())
	})

	t.Run("storage fault", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		store.getErr = errStorage
		rr := newTestEnv(t, store).get("/book/1")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestBooksController_NewBookForm(t *testing.T) {
	env := newTestEnv(t, newMockBookStore())

	rr := env.get("/add")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "edit=false error= title=")
}

func TestBooksController_CreateBook(t *testing.T) {
	t.Run("valid form is stored and redirects to the list", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postForm("/add", duneForm()))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))

		book, ok := store.get(1)
		require.True(t, ok)
		assert.Equal(t, entities.Book{
			ID:        1,
			Title:     "Dune",
			Author:    "Frank Herbert",
			Pages:     intPtr(412),
			ReadPages: intPtr(0),
			Year:      intPtr(1965),
			Status:    entities.BookStatusWantToRead,
			Rating:    intPtr(0),
		}, book)
	})

	t.Run("missing status defaults to want to read", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postForm("/add", url.Values{"title": {"X"}, "author": {"Y"}}))
		require.Equal(t, http.StatusFound, rr.Code)

		book, ok := store.get(1)
		require.True(t, ok)
		assert.Equal(t, entities.BookStatusWantToRead, book.Status)
		assert.Nil(t, book.Pages)
		assert.Nil(t, book.Rating)
	})

	t.Run("empty title reports only the title", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postForm("/add", url.Values{"title": {""}, "author": {"X"}, "status": {"read"}}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "error=Title is required title=")
		assert.Zero(t, store.addCalls, "validation failures never reach storage")
	})

	t.Run("year in the future", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		form := duneForm()
		form.Set("year", "3000")
		rr := env.do(postForm("/add", form))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "error=Year must be between 0 and 2026 title=Dune")
		assert.Zero(t, store.addCalls)
	})

	t.Run("with a cover", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postMultipart(t, "/add", duneForm(), "dune.png", pngCover(t)))
		require.Equal(t, http.StatusFound, rr.Code)

		book, ok := store.get(1)
		require.True(t, ok)
		require.True(t, book.HasCover())
		_, err := os.Stat(filepath.Join(env.covers.Dir(), book.Cover()))
		assert.NoError(t, err)
	})

	t.Run("empty file input means no cover", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postMultipart(t, "/add", duneForm(), "", nil))
		require.Equal(t, http.StatusFound, rr.Code)

		book, ok := store.get(1)
		require.True(t, ok)
		assert.Nil(t, book.CoverFilename)
	})

	t.Run("unsupported cover type", func(t *testing.T) {
		store := newMockBookStore()
		env := newTestEnv(t, store)

		rr := env.do(postMultipart(t, "/add", duneForm(), "notes.txt", []byte("plain text, not an image")))
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
		assert.Contains(t, rr.Body.String(), "Only JPEG, PNG and GIF allowed")
		assert.Zero(t, store.addCalls)

		names, err := env.covers.List()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("oversize cover", func(t *testing.T) {
		store := newMockBookStore()
		small, err := covers.NewStore(t.TempDir(), 16)
		require.NoError(t, err)
		env := newTestEnv(t, store, func(cfg *RouterConfig) {
			cfg.Covers = small
			cfg.CoversDir = small.Dir()
		})

		rr := env.do(postMultipart(t, "/add", duneForm(), "dune.png", pngCover(t)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Zero(t, store.addCalls)
	})

	t.Run("storage fault discards the saved cover", func(t *testing.T) {
		store := newMockBookStore()
		store.addErr = errStorage
		env := newTestEnv(t, store)

		rr := env.do(postMultipart(t, "/add", duneForm(), "dune.png", pngCover(t)))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to add book", rr.Body.String())
		assert.Len(t, env.remover.removed, 1)
	})
}

func TestBooksController_EditBookForm(t *testing.T) {
	env := newTestEnv(t, newMockBookStore(sampleBook()))

	rr := env.get("/book/1/edit")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "edit=true error= title=1984")

	assert.Equal(t, http.StatusNotFound, env.get("/book/5/edit").Code)
	assert.Equal(t, http.StatusBadRequest, env.get("/book/x/edit").Code)
}

func TestBooksController_UpdateBook(t *testing.T) {
	withCover := func() entities.Book {
		b := sampleBook()
		b.CoverFilename = strPtr("1700000000000-old.png")
		return b
	}

	t.Run("full overwrite keeps the stored cover", func(t *testing.T) {
		store := newMockBookStore(withCover())
		env := newTestEnv(t, store)

		form := url.Values{"title": {"Nineteen Eighty-Four"}, "author": {"George Orwell"}, "status": {"read"}}
		rr := env.do(postForm("/book/1/edit", form))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/book/1", rr.Header().Get("Location"))

		book, _ := store.get(1)
		assert.Equal(t, "Nineteen Eighty-Four", book.Title)
		assert.Equal(t, entities.BookStatusRead, book.Status)
		assert.Nil(t, book.Pages, "cleared fields are stored as null")
		assert.Nil(t, book.Rating)
		assert.Equal(t, "", book.Review)
		assert.Equal(t, "1700000000000-old.png", book.Cover())
		assert.Empty(t, env.remover.removed)
	})

	t.Run("remove_cover clears and schedules removal", func(t *testing.T) {
		store := newMockBookStore(withCover())
		env := newTestEnv(t, store)

		form := duneForm()
		form.Set("remove_cover", "true")
		rr := env.do(postForm("/book/1/edit", form))
		require.Equal(t, http.StatusFound, rr.Code)

		book, _ := store.get(1)
		assert.Nil(t, book.CoverFilename)
		assert.Equal(t, []string{"1700000000000-old.png"}, env.remover.removed)
	})

	t.Run("new upload replaces the cover", func(t *testing.T) {
		store := newMockBookStore(withCover())
		env := newTestEnv(t, store)

		rr := env.do(postMultipart(t, "/book/1/edit", duneForm(), "new.png", pngCover(t)))
		require.Equal(t, http.StatusFound, rr.Code)

		book, _ := store.get(1)
		require.True(t, book.HasCover())
		assert.NotEqual(t, "1700000000000-old.png", book.Cover())
		assert.Equal(t, []string{"1700000000000-old.png"}, env.remover.removed)
	})

	t.Run("hidden existing_cover field is ignored", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		env := newTestEnv(t, store)

		form := duneForm()
		form.Set("existing_cover", "../../etc/passwd")
		rr := env.do(postForm("/book/1/edit", form))
		require.Equal(t, http.StatusFound, rr.Code)

		book, _ := store.get(1)
		assert.Nil(t, book.CoverFilename)
	})

	t.Run("validation failure re-renders the submitted form", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		env := newTestEnv(t, store)

		form := duneForm()
		form.Set("read_pages", "500")
		rr := env.do(postForm("/book/1/edit", form))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "edit=true error=Invalid pages read value title=Dune")

		book, _ := store.get(1)
		assert.Equal(t, "1984", book.Title, "stored book is untouched")
	})

	t.Run("absent book", func(t *testing.T) {
		env := newTestEnv(t, newMockBookStore())

		rr := env.do(postForm("/book/42/edit", duneForm()))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("storage fault", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		store.updateErr = errStorage
		env := newTestEnv(t, store)

		rr := env.do(postForm("/book/1/edit", duneForm()))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to update book", rr.Body.String())
	})
}

func TestBooksController_DeleteBook(t *testing.T) {
	t.Run("deletes and schedules cover removal", func(t *testing.T) {
		b := sampleBook()
		b.CoverFilename = strPtr("1700000000000-a.png")
		store := newMockBookStore(b)
		env := newTestEnv(t, store)

		rr := env.do(postForm("/book/1/delete", nil))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))

		_, ok := store.get(1)
		assert.False(t, ok)
		assert.Equal(t, []string{"1700000000000-a.png"}, env.remover.removed)
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		env := newTestEnv(t, store)

		rr := env.do(postForm("/book/9/delete", nil))
		assert.Equal(t, http.StatusFound, rr.Code)
		_, ok := store.get(1)
		assert.True(t, ok, "other books are untouched")
	})

	t.Run("storage fault", func(t *testing.T) {
		store := newMockBookStore(sampleBook())
		store.deleteErr = errStorage
		env := newTestEnv(t, store)

		rr := env.do(postForm("/book/1/delete", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to delete book", rr.Body.String())
	})
}

func TestBooksController_FlashAfterAdd(t *testing.T) {
	store := newMockBookStore()
	sessions := security.NewSessionManager(security.NewMemorySessionStore(), time.Hour, false)
	env := newTestEnv(t, store, func(cfg *RouterConfig) { cfg.Sessions = sessions })

	rr := env.do(postForm("/add", duneForm()))
	require.Equal(t, http.StatusFound, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rr.Result().Cookies() {
		req.AddCookie(cookie)
	}
	page := env.do(req)
	assert.Contains(t, page.Body.String(), "flash=Added &#34;Dune&#34;|Dune;")
}

func TestRouter_ReadOnly(t *testing.T) {
	store := newMockBookStore()
	env := newTestEnv(t, store, func(cfg *RouterConfig) { cfg.ReadOnly = true })

	assert.Equal(t, http.StatusOK, env.get("/").Code)
	rr := env.do(postForm("/add", duneForm()))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, store.addCalls)
}

func TestRouter_CSRF(t *testing.T) {
	store := newMockBookStore()
	env := newTestEnv(t, store, func(cfg *RouterConfig) {
		cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
	})

	rr := env.do(postForm("/add", duneForm()))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, store.addCalls)

	form := env.get("/add")
	assert.NotRegexp(t, `csrf=$`, form.Body.String(), "form receives a token")
}
