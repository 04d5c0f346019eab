package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dickeyy/bundle-dashboard/config"
	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/google/go-github/v74/github"
	"github.com/rs/zerolog/log"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

var (
	GitHubClient  *github.Client
	GraphQLClient *githubv4.Client
)

// InitGitHub creates the REST and GraphQL clients on top of base. The token
// is optional for REST on public repositories.
func InitGitHub(ctx context.Context, token string, base *http.Client) {
	if base == nil {
		base = http.DefaultClient
	}
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(ctx, ts)
		GitHubClient = github.NewClient(tc)
		GraphQLClient = githubv4.NewClient(tc)
		log.Info().Bool("token_present", true).Msg("GitHub client initialized")
		return
	}

	GitHubClient = github.NewClient(base)
	GraphQLClient = githubv4.NewClient(base)
	log.Info().Bool("token_present", false).Msg("GitHub client initialized")
}

// GitHubSource reads the dataset file from a repository through the contents
// API. Ref may be a branch, tag or SHA; empty means the default branch.
type GitHubSource struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

func (s *GitHubSource) path() string {
	if s.Path == "" {
		return config.DatasetPath
	}
	return strings.TrimPrefix(s.Path, "/")
}

func (s *GitHubSource) Load(ctx context.Context) ([]types.MeasurementRecord, error) {
	if GitHubClient == nil {
		return nil, &types.NetworkError{Err: errors.New("GitHub client not initialized")}
	}

	var opts *github.RepositoryContentGetOptions
	if s.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.Ref}
	}

	log.Debug().Str("owner", s.Owner).Str("repo", s.Repo).Str("ref", s.Ref).Str("path", s.path()).Msg("fetching bundle data from GitHub")
	file, _, resp, err := GitHubClient.Repositories.GetContents(ctx, s.Owner, s.Repo, s.path(), opts)
	if err != nil {
		return nil, githubError(err)
	}
	if resp != nil {
		log.Debug().Int("rate_remaining", resp.Rate.Remaining).Time("rate_reset", resp.Rate.Reset.Time).Msg("fetched bundle data from GitHub")
	}
	if file == nil {
		return nil, &types.ParseError{Err: errors.New(s.path() + " is a directory")}
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, &types.ParseError{Err: err}
	}
	return decodeDataset(strings.NewReader(content))
}

// githubError maps go-github errors onto the load error kinds. Rate limits
// are reported, not waited out: a load is never retried.
func githubError(err error) error {
	var (
		rlErr    *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rlErr):
		log.Warn().Time("reset_at", rlErr.Rate.Reset.Time).Msg("GitHub rate limit reached")
		return &types.FetchError{StatusCode: responseCode(rlErr.Response, http.StatusForbidden), Status: "rate limit exceeded"}
	case errors.As(err, &abuseErr):
		if abuseErr.RetryAfter != nil {
			log.Warn().Dur("retry_after", *abuseErr.RetryAfter).Msg("GitHub abuse detection triggered")
		}
		return &types.FetchError{StatusCode: responseCode(abuseErr.Response, http.StatusForbidden), Status: "secondary rate limit"}
	case errors.As(err, &respErr):
		code := responseCode(respErr.Response, http.StatusBadGateway)
		return &types.FetchError{StatusCode: code, Status: http.StatusText(code)}
	default:
		return &types.NetworkError{Err: err}
	}
}

func responseCode(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}
