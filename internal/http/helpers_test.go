package http

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = func() time.Time { return time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC) }

// testTemplates print just enough of the page data for assertions.
var testTemplates = map[string]string{
	"books.html":     `{{define "books"}}flash={{.Flash}}|{{range .Books}}{{.Title}};{{end}}{{end}}`,
	"book.html":      `{{define "book"}}{{.Book.Title}} by {{.Book.Author}} cover={{.Book.Cover}}{{end}}`,
	"book-form.html": `{{define "book-form"}}edit={{.IsEdit}} error={{.Error}} title={{.Form.Title}} csrf={{.CSRFToken}}{{end}}`,
}

func writeTestTemplates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range testTemplates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

type mockBookStore struct {
	mu     sync.Mutex
	books  map[uint]entities.Book
	nextID uint

	listErr   error
	getErr    error
	addErr    error
	updateErr error
	deleteErr error

	addCalls int
}

func newMockBookStore(initial ...entities.Book) *mockBookStore {
	m := &mockBookStore{books: make(map[uint]entities.Book)}
	for _, b := range initial {
		m.nextID++
		b.ID = m.nextID
		m.books[b.ID] = b
	}
	return m
}

func (m *mockBookStore) ListBooks(ctx context.Context) ([]entities.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := make([]entities.Book, 0, len(m.books))
	for _, b := range m.books {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (m *mockBookStore) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.books[id]
	if !ok {
		return nil, books.ErrNotFound
	}
	return &b, nil
}

func (m *mockBookStore) AddBook(ctx context.Context, book *entities.Book) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.nextID++
	row := *book
	row.ID = m.nextID
	m.books[row.ID] = row
	book.ID = row.ID
	return row.ID, nil
}

func (m *mockBookStore) UpdateBook(ctx context.Context, id uint, book *entities.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.books[id]; !ok {
		return books.ErrNotFound
	}
	row := *book
	row.ID = id
	m.books[id] = row
	return nil
}

func (m *mockBookStore) DeleteBook(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.books, id)
	return nil
}

func (m *mockBookStore) get(id uint) (entities.Book, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	return b, ok
}

type mockRemover struct {
	removed []string
	err     error
}

func (m *mockRemover) RemoveCover(ctx context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, name)
	return nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(ctx context.Context) error { return m.err }

var errStorage = errors.New("disk I/O error")

type testEnv struct {
	router  *gin.Engine
	store   *mockBookStore
	covers  *covers.Store
	remover *mockRemover
}

func newTestEnv(t *testing.T, store *mockBookStore, configure ...func(*RouterConfig)) *testEnv {
	t.Helper()
	coverStore, err := covers.NewStore(filepath.Join(t.TempDir(), "covers"), 5<<20)
	require.NoError(t, err)
	remover := &mockRemover{}

	cfg := RouterConfig{
		Books:         store,
		Database:      mockPinger{},
		Covers:        coverStore,
		CoversDir:     coverStore.Dir(),
		CoverRemover:  remover,
		TemplatesPath: writeTestTemplates(t),
		Version:       "test",
		Now:           testNow,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	return &testEnv{
		router:  NewRouter(cfg),
		store:   store,
		covers:  coverStore,
		remover: remover,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// postMultipart builds a form submission with an optional cover file.
func postMultipart(t *testing.T, path string, form url.Values, filename string, cover []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, values := range form {
		for _, v := range values {
			require.NoError(t, writer.WriteField(key, v))
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile(coverField, filename)
		require.NoError(t, err)
		_, err = part.Write(cover)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngCover(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func duneForm() url.Values {
	return url.Values{
		"title":      {"Dune"},
		"author":     {"Frank Herbert"},
		"pages":      {"412"},
		"read_pages": {"0"},
		"year":       {"1965"},
		"status":     {"want to read"},
		"rating":     {"0"},
	}
}
