package recordbase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movie struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Rank   int    `json:"rank"`
	Review string `json:"review,omitempty"`
}

// recordBackend serves a movies collection, recording the last request.
type recordBackend struct {
	lastMethod string
	lastPath   string
	lastQuery  string
	lastBody   []byte

	status int
	reply  string
}

func (b *recordBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.lastMethod = r.Method
	b.lastPath = r.URL.Path
	b.lastQuery = r.URL.RawQuery
	b.lastBody, _ = io.ReadAll(r.Body)

	if b.status != 0 {
		http.Error(w, "backend says no", b.status)
		return
	}
	if b.reply != "" {
		_, _ = io.WriteString(w, b.reply)
		return
	}
	_, _ = io.WriteString(w, "{}")
}

func newRecordClient(t *testing.T, backend *recordBackend) *RecordAPI[movie] {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	return Records[movie](client, "movies")
}

func TestRecordCreate(t *testing.T) {
	backend := &recordBackend{reply: `{"ids":["rec-1"]}`}
	api := newRecordClient(t, backend)

	id, err := api.Create(context.Background(), movie{Title: "Heat", Rank: 9})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id.String())

	assert.Equal(t, http.MethodPost, backend.lastMethod)
	assert.Equal(t, "/api/records/v1/movies", backend.lastPath)

	var sent movie
	require.NoError(t, json.Unmarshal(backend.lastBody, &sent))
	assert.Equal(t, "Heat", sent.Title)
}

func TestRecordCreate_UnexpectedIDCount(t *testing.T) {
	backend := &recordBackend{reply: `{"ids":["a","b"]}`}
	api := newRecordClient(t, backend)

	_, err := api.Create(context.Background(), movie{Title: "Heat"})
	require.Error(t, err)
}

func TestRecordCreateBulk(t *testing.T) {
	want := []string{uuid.NewString(), uuid.NewString()}
	reply, _ := json.Marshal(map[string][]string{"ids": want})
	backend := &recordBackend{reply: string(reply)}
	api := newRecordClient(t, backend)

	ids, err := api.CreateBulk(context.Background(), []movie{
		{Title: "Heat", Rank: 9},
		{Title: "Alien", Rank: 10},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, want[0], ids[0].String())
	assert.Equal(t, want[1], ids[1].String())

	var sent []movie
	require.NoError(t, json.Unmarshal(backend.lastBody, &sent))
	require.Len(t, sent, 2)
}

func TestRecordRead(t *testing.T) {
	backend := &recordBackend{reply: `{"id":"rec-1","title":"Heat","rank":9}`}
	api := newRecordClient(t, backend)

	got, err := api.Read(context.Background(), StringID("rec-1"))
	require.NoError(t, err)
	assert.Equal(t, &movie{ID: "rec-1", Title: "Heat", Rank: 9}, got)
	assert.Equal(t, "/api/records/v1/movies/rec-1", backend.lastPath)
	assert.Empty(t, backend.lastQuery)
}

func TestRecordRead_Expand(t *testing.T) {
	backend := &recordBackend{reply: `{"title":"Heat"}`}
	api := newRecordClient(t, backend)

	_, err := api.Read(context.Background(), IntID(7), "director", "studio")
	require.NoError(t, err)
	assert.Equal(t, "/api/records/v1/movies/7", backend.lastPath)
	assert.Equal(t, "expand=director%2Cstudio", backend.lastQuery)
}

func TestRecordRead_NotFound(t *testing.T) {
	backend := &recordBackend{status: http.StatusNotFound}
	api := newRecordClient(t, backend)

	_, err := api.Read(context.Background(), StringID("missing"))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRecordUpdate(t *testing.T) {
	backend := &recordBackend{}
	api := newRecordClient(t, backend)

	err := api.Update(context.Background(), StringID("rec-1"), movie{Title: "Heat", Rank: 10})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, backend.lastMethod)
	assert.Equal(t, "/api/records/v1/movies/rec-1", backend.lastPath)
}

func TestRecordDelete(t *testing.T) {
	backend := &recordBackend{}
	api := newRecordClient(t, backend)

	err := api.Delete(context.Background(), IntID(7))
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, backend.lastMethod)
	assert.Equal(t, "/api/records/v1/movies/7", backend.lastPath)
}

func TestRecordList(t *testing.T) {
	backend := &recordBackend{reply: `{"total_count":2,"records":[{"title":"Heat"},{"title":"Alien"}]}`}
	api := newRecordClient(t, backend)

	page, err := api.List(context.Background(), &ListArguments{
		Order: []string{"-rank", "title"},
		Filters: []Filter{
			ColumnFilter{Column: "title", Op: OpLike, Value: "%e%"},
		},
		Limit: 2,
		Count: true,
	})
	require.NoError(t, err)
	require.NotNil(t, page.TotalCount)
	assert.EqualValues(t, 2, *page.TotalCount)
	require.Len(t, page.Records, 2)

	assert.Equal(t,
		"limit=2&order=-rank%2Ctitle&count=true&filter%5Btitle%5D%5B%24like%5D=%25e%25",
		backend.lastQuery)
}

func TestRecordList_NilArguments(t *testing.T) {
	backend := &recordBackend{reply: `{"records":[]}`}
	api := newRecordClient(t, backend)

	page, err := api.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, backend.lastQuery)
}

func TestRecordSubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/records/v1/movies/subscribe/rec-1", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"Insert\":{\"title\":\"Heat\"}}\n")
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	sub, err := Records[movie](client, "movies").Subscribe(context.Background(), StringID("rec-1"))
	require.NoError(t, err)
	defer sub.Close()

	event, err := sub.Next()
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Heat"}`, string(event.Insert))
}

func TestRecordSubscribe_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "records api not enabled", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = Records[movie](client, "movies").Subscribe(context.Background(), StringID("rec-1"))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Contains(t, string(se.Body), "not enabled")
}
