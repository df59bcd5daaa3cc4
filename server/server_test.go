package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/grcnews/pkg/dataset"
	"github.com/umputun/grcnews/pkg/domain"
	"github.com/umputun/grcnews/pkg/history"
	"github.com/umputun/grcnews/server/mocks"
)

var testRecords = []domain.RatedRecord{
	{
		Article: domain.Article{ID: "id1", Date: "2025-03-04", Keyword: "ransomware", Headline: "Hospital hit",
			Description: "A hospital was hit.", URL: "http://example.com/a"},
		OneSentenceSummary: "Ransomware hits a hospital.", Labels: "Cybersecurity, Healthcare", Rating: "A Tier",
		RatingExplanation: "a; b", QualityScore: "80", QualityScoreExplanation: "c",
	},
	{
		Article: domain.Article{ID: "id2", Date: "2025-03-04", Keyword: "gdpr", Headline: "Fine issued",
			Description: "A regulator fined a company.", URL: "http://example.com/b"},
	},
}

func testArchive() *mocks.ArchiveMock {
	started := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	return &mocks.ArchiveMock{
		RunsFunc: func(_ context.Context, limit int) ([]history.Run, error) {
			runs := []history.Run{
				{ID: 2, StartedAt: started, FinishedAt: &finished, Keywords: "ransomware, gdpr", Articles: 2, Extracted: 1, Analyzed: 1, Rated: 2},
				{ID: 1, StartedAt: started.Add(-time.Hour), Keywords: "sox"},
			}
			return runs[:min(limit, len(runs))], nil
		},
		RatedFunc: func(_ context.Context, runID int64) ([]domain.RatedRecord, error) {
			if runID == 2 {
				return testRecords, nil
			}
			return nil, nil
		},
	}
}

func testServer(archive Archive) *Server {
	return New(Config{Listen: "127.0.0.1:8080", Version: "test"}, archive)
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestServer_New(t *testing.T) {
	s := New(Config{Listen: ":8080", Version: "1.0.0"}, &mocks.ArchiveMock{})
	assert.Equal(t, "1.0.0", s.Version)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, "http://:8080", s.BaseURL)
}

func TestServer_Run(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	s := New(Config{Listen: fmt.Sprintf("127.0.0.1:%d", port), Version: "1.0.0"}, testArchive())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/ping", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec,noctx // test url
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_statusHandler(t *testing.T) {
	rr := serve(t, testServer(testArchive()), "/api/v1/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestServer_runsHandler(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		archive := testArchive()
		rr := serve(t, testServer(archive), "/api/v1/runs")
		require.Equal(t, http.StatusOK, rr.Code)

		var runs []runResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, int64(2), runs[0].ID)
		assert.Equal(t, "ransomware, gdpr", runs[0].Keywords)
		assert.NotNil(t, runs[0].FinishedAt)
		assert.Nil(t, runs[1].FinishedAt)
		assert.Equal(t, defaultRunsLimit, archive.RunsCalls()[0].Limit)
	})

	t.Run("limit is capped", func(t *testing.T) {
		archive := testArchive()
		rr := serve(t, testServer(archive), "/api/v1/runs?limit=1000")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, maxRunsLimit, archive.RunsCalls()[0].Limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		archive := testArchive()
		rr := serve(t, testServer(archive), "/api/v1/runs?limit=abc")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid limit")
		assert.Empty(t, archive.RunsCalls())
	})

	t.Run("archive error", func(t *testing.T) {
		archive := &mocks.ArchiveMock{RunsFunc: func(context.Context, int) ([]history.Run, error) {
			return nil, errors.New("database is locked")
		}}
		rr := serve(t, testServer(archive), "/api/v1/runs")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "failed to get runs")
		assert.NotContains(t, rr.Body.String(), "locked")
	})
}

func TestServer_ratedHandler(t *testing.T) {
	archive := testArchive()
	rr := serve(t, testServer(archive), "/api/v1/runs/2/rated")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp []map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Hospital hit", resp[0]["title"])
	assert.Equal(t, "a; b", resp[0]["rating-explanation"])
	assert.Equal(t, "80", resp[0]["quality-score"])
	assert.Equal(t, "", resp[1]["rating"])
	assert.Equal(t, int64(2), archive.RatedCalls()[0].RunID)

	// unknown run gives empty list
	rr = serve(t, testServer(archive), "/api/v1/runs/1/rated")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestServer_ratedHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   int
	}{
		{name: "not a number", target: "/api/v1/runs/abc/rated", code: http.StatusBadRequest},
		{name: "zero id", target: "/api/v1/runs/0/rated.csv", code: http.StatusBadRequest},
		{name: "archive error", target: "/api/v1/runs/3/rated", code: http.StatusInternalServerError},
	}

	archive := &mocks.ArchiveMock{RatedFunc: func(context.Context, int64) ([]domain.RatedRecord, error) {
		return nil, errors.New("no such table")
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, testServer(archive), tt.target)
			assert.Equal(t, tt.code, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestServer_ratedCSVHandler(t *testing.T) {
	rr := serve(t, testServer(testArchive()), "/api/v1/runs/2/rated.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "grcdata_rated_2.csv")

	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, dataset.RatedHeader, rows[0])
	assert.Equal(t, testRecords[0].Row(), rows[1])
	assert.Equal(t, testRecords[1].Row(), rows[2])
}

func TestServer_rssHandler(t *testing.T) {
	parse := func(t *testing.T, body string) rss {
		t.Helper()
		var feed rss
		require.NoError(t, xml.Unmarshal([]byte(body), &feed))
		return feed
	}

	t.Run("latest run", func(t *testing.T) {
		archive := testArchive()
		rr := serve(t, testServer(archive), "/rss")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/rss+xml; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Body.String(), xml.Header))

		feed := parse(t, rr.Body.String())
		assert.Equal(t, "GRC News", feed.Channel.Title)
		assert.Contains(t, rr.Body.String(), `href="http://127.0.0.1:8080/rss"`)
		require.Len(t, feed.Channel.Items, 2)
		item := feed.Channel.Items[0]
		assert.Equal(t, "[80] Hospital hit", item.Title)
		assert.Equal(t, "http://example.com/a", item.Link)
		assert.Equal(t, "id1", item.GUID)
		assert.Equal(t, "Rating: A Tier\n\nRansomware hits a hospital.", item.Description)
		assert.Equal(t, []string{"Cybersecurity", "Healthcare"}, item.Categories)
		assert.Equal(t, "Tue, 04 Mar 2025 00:00:00 +0000", item.PubDate)

		// not analyzed article falls back to search description
		assert.Equal(t, "Fine issued", feed.Channel.Items[1].Title)
		assert.Equal(t, "A regulator fined a company.", feed.Channel.Items[1].Description)

		assert.Equal(t, 1, archive.RunsCalls()[0].Limit)
		assert.Equal(t, int64(2), archive.RatedCalls()[0].RunID)
	})

	t.Run("min score", func(t *testing.T) {
		rr := serve(t, testServer(testArchive()), "/rss?min_score=50")
		require.Equal(t, http.StatusOK, rr.Code)
		feed := parse(t, rr.Body.String())
		assert.Contains(t, feed.Channel.Title, "Quality ≥ 50")
		require.Len(t, feed.Channel.Items, 1)
		assert.Equal(t, "id1", feed.Channel.Items[0].GUID)

		rr = serve(t, testServer(testArchive()), "/rss?min_score=90")
		assert.Empty(t, parse(t, rr.Body.String()).Channel.Items)
	})

	t.Run("invalid min score", func(t *testing.T) {
		rr := serve(t, testServer(testArchive()), "/rss?min_score=high")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("no runs", func(t *testing.T) {
		archive := &mocks.ArchiveMock{RunsFunc: func(context.Context, int) ([]history.Run, error) { return nil, nil }}
		rr := serve(t, testServer(archive), "/rss")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, parse(t, rr.Body.String()).Channel.Items)
		assert.Empty(t, archive.RatedCalls())
	})

	t.Run("archive error", func(t *testing.T) {
		archive := &mocks.ArchiveMock{RunsFunc: func(context.Context, int) ([]history.Run, error) {
			return nil, errors.New("boom")
		}}
		rr := serve(t, testServer(archive), "/rss")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestFilterByScore(t *testing.T) {
	recs := []domain.RatedRecord{{QualityScore: "80"}, {QualityScore: " 7.5 "}, {QualityScore: ""}, {QualityScore: "n/a"}}
	assert.Len(t, filterByScore(recs, -1), 4)
	assert.Len(t, filterByScore(recs, 0), 2)
	assert.Len(t, filterByScore(recs, 10), 1)
}
