package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/daoscope/govcollector/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public Snapshot hub GraphQL endpoint.
const DefaultEndpoint = "https://hub.snapshot.org/graphql"

const (
	maxResponseBytes = 32 << 20
	logSnippetBytes  = 300
)

// HTTPClient talks to a GraphQL governance API over HTTPS POST.
// Requests share a token-bucket limiter; failed requests are never retried here.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoint   string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &HTTPClient{
		endpoint: o.Endpoint,
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		logger:   o.Logger.Named("snapshot"),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// ListProposals returns proposals of space, newest first.
func (c *HTTPClient) ListProposals(ctx context.Context, space string, q ProposalQuery) ([]Proposal, error) {
	where := map[string]any{"space_in": []string{space}}
	if q.State != "" && q.State != StateAll {
		where["state"] = q.State
	}
	if !q.CreatedSince.IsZero() {
		where["created_gte"] = q.CreatedSince.Unix()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultProposalLimit
	}

	var out struct {
		Proposals []Proposal `json:"proposals"`
	}
	if err := c.do(ctx, "list_proposals", proposalsQuery, map[string]any{"where": where, "first": limit}, &out); err != nil {
		return nil, err
	}
	if out.Proposals == nil {
		return []Proposal{}, nil
	}
	return out.Proposals, nil
}

// ListVotes returns up to limit votes of a proposal, heaviest first.
// A null votes payload is reported as an empty list.
func (c *HTTPClient) ListVotes(ctx context.Context, proposalID string, limit int) ([]Vote, error) {
	if limit <= 0 {
		limit = DefaultVoteLimit
	}

	var out struct {
		Votes []Vote `json:"votes"`
	}
	if err := c.do(ctx, "list_votes", votesQuery, map[string]any{"proposal": proposalID, "first": limit}, &out); err != nil {
		return nil, err
	}
	if out.Votes == nil {
		c.logger.Debug("Votes payload empty or null", zap.String("proposal_id", proposalID))
		return []Vote{}, nil
	}
	return out.Votes, nil
}

// GetSpace returns space metadata or ErrSpaceNotFound.
func (c *HTTPClient) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	var out struct {
		Space *Space `json:"space"`
	}
	if err := c.do(ctx, "get_space", spaceQuery, map[string]any{"id": spaceID}, &out); err != nil {
		return nil, err
	}
	if out.Space == nil {
		return nil, fmt.Errorf("snapshot get_space %s: %w", spaceID, ErrSpaceNotFound)
	}
	return out.Space, nil
}

// do posts one GraphQL request and decodes its data member into out.
// A non-2xx status and a populated errors array are both hard errors; a null
// or missing data member leaves out untouched.
func (c *HTTPClient) do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return &Error{Op: op, Kind: KindDecode, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}

	c.logger.Debug("Sending query",
		zap.String("op", op),
		zap.String("endpoint", c.endpoint),
		zap.String("body", utils.Truncate(string(payload), logSnippetBytes)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	body, readErr := utils.ReadAllAndClose(resp.Body, maxResponseBytes)

	c.logger.Debug("Received response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("body", utils.Truncate(string(body), logSnippetBytes)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Op:         op,
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Messages:   nonEmpty(utils.Truncate(strings.TrimSpace(string(body)), logSnippetBytes)),
		}
	}
	if readErr != nil {
		return &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: readErr}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return &Error{Op: op, Kind: KindGraphQL, StatusCode: resp.StatusCode, Messages: msgs}
	}

	if len(envelope.Data) == 0 || bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
