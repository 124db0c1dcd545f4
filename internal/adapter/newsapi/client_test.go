package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geomonitor-etl/internal/domain"
)

const sampleResponse = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": null, "name": "Reuters"},
      "title": " KYIV — Drone strikes hit power grid ",
      "description": "<p>Officials said <b>three</b> regions lost power &amp; heat.</p>",
      "url": "https://example.com/kyiv",
      "publishedAt": "2024-04-26T10:00:00Z"
    },
    {
      "source": {"id": null, "name": null},
      "title": "Markets wobble",
      "description": null,
      "url": "https://example.com/markets",
      "publishedAt": null
    }
  ]
}`

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "earthquake OR war", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "30", q.Get("pageSize"))
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "earthquake OR war", 30, 5*time.Second)
	articles, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, domain.Article{
		Title:       "KYIV — Drone strikes hit power grid",
		Description: "Officials said three regions lost power & heat.",
		SourceName:  "Reuters",
		PublishedAt: "2024-04-26T10:00:00Z",
		URL:         "https://example.com/kyiv",
	}, articles[0])

	assert.Empty(t, articles[1].Description)
	assert.Empty(t, articles[1].SourceName)
	assert.Empty(t, articles[1].PublishedAt)
}

func TestClient_Fetch_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
		}))
		defer srv.Close()

		_, err := NewClient("bad", srv.URL, "", 30, time.Second).Fetch(context.Background())
		assert.ErrorContains(t, err, "status 401")
	})

	t.Run("error envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"too many requests"}`))
		}))
		defer srv.Close()

		_, err := NewClient("k", srv.URL, "", 30, time.Second).Fetch(context.Background())
		assert.ErrorContains(t, err, "rateLimited")
	})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k", "", "", 30, time.Second)
	assert.Equal(t, DefaultURL, c.baseURL)
	assert.Equal(t, DefaultQuery, c.query)
	assert.Contains(t, c.query, "natural disaster OR earthquake")
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain   text\nhere", "plain text here"},
		{"<p>Hello<br/>world</p>", "Hello world"},
		{"Fish &amp; chips &lt;3", "Fish & chips <3"},
		{`<a href="x">link</a> trailing`, "link trailing"},
		{"<ul><li>one</li><li>two</li></ul>", "one two"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}
