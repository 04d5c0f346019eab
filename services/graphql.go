package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dickeyy/bundle-dashboard/types"
	"github.com/rs/zerolog/log"
	"github.com/shurcooL/githubv4"
)

// GraphQLSource reads the dataset blob with a single GraphQL query. Unlike
// the contents API it is not limited to 1 MB files, but needs a token.
type GraphQLSource struct {
	GitHubSource
}

type blobQuery struct {
	Repository struct {
		Object struct {
			Blob struct {
				Text        githubv4.String
				IsTruncated githubv4.Boolean
			} `graphql:"... on Blob"`
		} `graphql:"object(expression: $expression)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// expression is the git revision expression "<ref>:<path>".
func (s *GraphQLSource) expression() string {
	ref := s.Ref
	if ref == "" {
		ref = "HEAD"
	}
	return ref + ":" + s.path()
}

func (s *GraphQLSource) Load(ctx context.Context) ([]types.MeasurementRecord, error) {
	if GraphQLClient == nil {
		return nil, &types.NetworkError{Err: errors.New("GitHub GraphQL client not initialized")}
	}

	var q blobQuery
	vars := map[string]interface{}{
		"owner":      githubv4.String(s.Owner),
		"name":       githubv4.String(s.Repo),
		"expression": githubv4.String(s.expression()),
	}
	log.Debug().Str("owner", s.Owner).Str("repo", s.Repo).Str("expression", s.expression()).Msg("querying bundle data blob")
	if err := GraphQLClient.Query(ctx, &q, vars); err != nil {
		return nil, &types.NetworkError{Err: err}
	}

	blob := q.Repository.Object.Blob
	if blob.IsTruncated {
		return nil, &types.ParseError{Err: errors.New("bundle data blob is truncated")}
	}
	if blob.Text == "" {
		return nil, &types.FetchError{StatusCode: http.StatusNotFound, Status: http.StatusText(http.StatusNotFound)}
	}
	return decodeDataset(strings.NewReader(string(blob.Text)))
}
