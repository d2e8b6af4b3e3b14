package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
)

func testOptions() fetchers.Options {
	return fetchers.Options{
		MaxCandidates:     100,
		RequestsPerSecond: 1000,
		Timeout:           5 * time.Second,
		MaxRetries:        0,
	}
}

func feedSpec(baseURL string) domain.SourceSpec {
	return domain.SourceSpec{
		ID:      "test-feed",
		Kind:    domain.KindFeed,
		BaseURL: baseURL,
	}
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, records <-chan domain.RawRecord, errs <-chan error) ([]domain.RawRecord, []error) {
	t.Helper()

	var got []domain.RawRecord
	var fetchErrs []error
	for records != nil || errs != nil {
		select {
		case r, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			got = append(got, r)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fetchErrs = append(fetchErrs, err)
		case <-time.After(10 * time.Second):
			t.Fatal("fetch did not finish")
		}
	}
	return got, fetchErrs
}

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Development News</title>
    <item>
      <title>Energy Access Expands in the Sahel</title>
      <link>http://example.org/news/energy-access</link>
      <description>A major electrification push reaches twelve countries.</description>
      <pubDate>Mon, 04 Mar 2024 09:30:00 +0000</pubDate>
      <category>Press Release</category>
    </item>
    <item>
      <title>Remarks at the Annual Meetings</title>
      <link>http://example.org/speeches/annual-meetings</link>
      <pubDate>2024-02-15</pubDate>
      <category>Speeches</category>
    </item>
  </channel>
</rss>`

func TestNew(t *testing.T) {
	t.Run("implements Fetcher interface", func(t *testing.T) {
		f := New(feedSpec("http://example.org/rss"), testOptions())
		var _ driven.Fetcher = f
		assert.Equal(t, domain.KindFeed, f.Kind())
		assert.Equal(t, "test-feed", f.SourceID())
	})
}

func TestFetcher_Fetch(t *testing.T) {
	t.Run("streams feed items as records", func(t *testing.T) {
		srv := serveFeed(t, sampleFeed)
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, fetchErrs := collect(t, records, errs)

		require.Empty(t, fetchErrs)
		require.Len(t, got, 2)

		assert.Equal(t, "Energy Access Expands in the Sahel", got[0].Title)
		assert.Equal(t, "http://example.org/news/energy-access", got[0].URL)
		assert.Equal(t, string(domain.TypePressRelease), got[0].DocumentType)
		assert.Equal(t, domain.StrategyFeed, got[0].FetchStrategy)
		assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), got[0].PublishedDate)

		assert.Equal(t, string(domain.TypeSpeech), got[1].DocumentType)
		assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), got[1].PublishedDate)
	})

	t.Run("translates non-UTF-8 feed charsets", func(t *testing.T) {
		srv := serveFeed(t, "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n"+
			"<rss version=\"2.0\"><channel>"+
			"<item><title>Caf\xe9 Dialogue on D\xe9veloppement</title>"+
			"<link>http://example.org/cafe</link></item>"+
			"</channel></rss>")
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, fetchErrs := collect(t, records, errs)

		require.Empty(t, fetchErrs)
		require.Len(t, got, 1)
		assert.Equal(t, "Café Dialogue on Développement", got[0].Title)
	})

	t.Run("skips items missing title or link", func(t *testing.T) {
		srv := serveFeed(t, `<rss version="2.0"><channel>
			<item><title>No link here</title></item>
			<item><link>http://example.org/no-title</link></item>
			<item><title>Complete</title><link>http://example.org/ok</link></item>
		</channel></rss>`)
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, fetchErrs := collect(t, records, errs)

		require.Empty(t, fetchErrs)
		require.Len(t, got, 1)
		assert.Equal(t, "Complete", got[0].Title)
	})

	t.Run("unparseable feed body reports a fetch error", func(t *testing.T) {
		srv := serveFeed(t, `<html><body><h1>504 Gateway Timeout</h1></body></html>`)
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, fetchErrs := collect(t, records, errs)

		assert.Empty(t, got)
		require.Len(t, fetchErrs, 1)
		var fetchErr *domain.FetchError
		require.ErrorAs(t, fetchErrs[0], &fetchErr)
		assert.Equal(t, "test-feed", fetchErr.Source)
		assert.Equal(t, srv.URL, fetchErr.URL)
	})

	t.Run("truncated feed reports a fetch error", func(t *testing.T) {
		srv := serveFeed(t, `<rss version="2.0"><channel>
			<item><title>Intact</title><link>http://example.org/intact</link></item>
			<item><title>Trunc`)
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		_, fetchErrs := collect(t, records, errs)

		require.Len(t, fetchErrs, 1)
		var fetchErr *domain.FetchError
		assert.ErrorAs(t, fetchErrs[0], &fetchErr)
	})

	t.Run("unparseable pubDate leaves the date zero", func(t *testing.T) {
		srv := serveFeed(t, `<rss version="2.0"><channel>
			<item><title>Dated</title><link>http://example.org/d</link><pubDate>sometime soon</pubDate></item>
		</channel></rss>`)
		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, _ := collect(t, records, errs)

		require.Len(t, got, 1)
		assert.True(t, got[0].PublishedDate.IsZero())
	})

	t.Run("caps emitted records at MaxCandidates", func(t *testing.T) {
		body := `<rss version="2.0"><channel>`
		for i := 0; i < 5; i++ {
			body += `<item><title>Doc</title><link>http://example.org/doc</link></item>`
		}
		body += `</channel></rss>`
		srv := serveFeed(t, body)

		opts := testOptions()
		opts.MaxCandidates = 2
		f := New(feedSpec(srv.URL), opts)

		records, errs := f.Fetch(context.Background())
		got, _ := collect(t, records, errs)

		assert.Len(t, got, 2)
	})

	t.Run("unreachable feed reports a fetch error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		f := New(feedSpec(srv.URL), testOptions())

		records, errs := f.Fetch(context.Background())
		got, fetchErrs := collect(t, records, errs)

		assert.Empty(t, got)
		require.Len(t, fetchErrs, 1)
		var fetchErr *domain.FetchError
		assert.ErrorAs(t, fetchErrs[0], &fetchErr)
	})
}

func TestDocType(t *testing.T) {
	tests := []struct {
		name       string
		categories []string
		want       string
	}{
		{"speeches", []string{"Speeches"}, string(domain.TypeSpeech)},
		{"press release", []string{"Press Release"}, string(domain.TypePressRelease)},
		{"blogs", []string{"Blogs"}, string(domain.TypeBlog)},
		{"first specific category wins", []string{"News", "speech"}, string(domain.TypeSpeech)},
		{"unknown category", []string{"News"}, string(domain.TypeArticle)},
		{"no categories", nil, string(domain.TypeArticle)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, docType(tt.categories))
		})
	}
}
