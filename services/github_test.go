package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/google/go-github/v74/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useGitHubServer(t *testing.T, h http.Handler) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	prevREST, prevGQL := GitHubClient, GraphQLClient
	GitHubClient = client
	GraphQLClient = githubv4.NewEnterpriseClient(srv.URL+"/graphql", srv.Client())
	t.Cleanup(func() { GitHubClient, GraphQLClient = prevREST, prevGQL })
}

func TestGitHubSourceLoad(t *testing.T) {
	var gotRef string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/jisr-hr/bundle-reports/contents/data/bundle-sizes.json", func(w http.ResponseWriter, r *http.Request) {
		gotRef = r.URL.Query().Get("ref")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"name":     "bundle-sizes.json",
			"path":     "data/bundle-sizes.json",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(sampleDataset)),
		})
	})
	useGitHubServer(t, mux)

	src := &GitHubSource{Owner: "jisr-hr", Repo: "bundle-reports", Ref: "gh-pages"}
	records, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gh-pages", gotRef)
	require.Len(t, records, 2)
	assert.Equal(t, "main", records[1].Branch)
}

func TestGitHubSourceNotFound(t *testing.T) {
	useGitHubServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message": "Not Found"}`)
	}))

	_, err := (&GitHubSource{Owner: "jisr-hr", Repo: "bundle-reports"}).Load(context.Background())

	var fetchErr *types.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestGitHubSourceNotInitialized(t *testing.T) {
	prev := GitHubClient
	GitHubClient = nil
	t.Cleanup(func() { GitHubClient = prev })

	_, err := (&GitHubSource{Owner: "o", Repo: "r"}).Load(context.Background())
	var netErr *types.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestGraphQLSourceLoad(t *testing.T) {
	var gotVars map[string]any
	useGitHubServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotVars = req.Variables

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"repository": map[string]any{
					"object": map[string]any{"text": sampleDataset, "isTruncated": false},
				},
			},
		})
	}))

	src := &GraphQLSource{GitHubSource{Owner: "jisr-hr", Repo: "bundle-reports", Ref: "gh-pages"}}
	records, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, "gh-pages:data/bundle-sizes.json", gotVars["expression"])
	assert.Equal(t, "bundle-reports", gotVars["name"])
}

func TestGraphQLSourceMissingBlob(t *testing.T) {
	useGitHubServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data": {"repository": {"object": null}}}`)
	}))

	_, err := (&GraphQLSource{GitHubSource{Owner: "o", Repo: "r"}}).Load(context.Background())

	var fetchErr *types.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestGraphQLExpressionDefaultsToHead(t *testing.T) {
	src := &GraphQLSource{GitHubSource{Path: "/reports/sizes.json"}}
	assert.Equal(t, "HEAD:reports/sizes.json", src.expression())
}
