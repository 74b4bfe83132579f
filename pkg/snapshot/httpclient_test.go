package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPWithOpts(Opts{
		Endpoint: server.URL,
		RPS:      1000,
		Burst:    100,
		Logger:   zaptest.NewLogger(t),
	})
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestHTTPClient_ListProposals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "proposals(")
		assert.EqualValues(t, 5, req.Variables["first"])

		where, ok := req.Variables["where"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []any{"ens.eth"}, where["space_in"])
		assert.Equal(t, "closed", where["state"])
		assert.EqualValues(t, 1700000000, where["created_gte"])

		_, _ = w.Write([]byte(`{"data":{"proposals":[
			{"id":"0xp1","title":"First","choices":["For","Against"],"start":1700000100,"end":1700090000,
			 "snapshot":"18500000","state":"closed","author":"0xauthor","created":1700000050,"votes":3,
			 "space":{"id":"ens.eth","name":"ENS"}},
			{"id":"0xp2","title":"Second","snapshot":18500001,"state":"closed","created":1700000040}
		]}}`))
	})

	proposals, err := client.ListProposals(context.Background(), "ens.eth", ProposalQuery{
		Limit:        5,
		State:        "closed",
		CreatedSince: time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	assert.Equal(t, "0xp1", proposals[0].ID)
	assert.Equal(t, []string{"For", "Against"}, proposals[0].Choices)
	assert.Equal(t, "18500000", string(proposals[0].Snapshot))
	assert.Equal(t, "ens.eth", proposals[0].Space.ID)
	assert.Equal(t, "18500001", string(proposals[1].Snapshot))

	row := proposals[0].ToModel("ens")
	assert.Equal(t, "ens", row.OrganizationID)
	assert.Equal(t, "0xp1", row.ExternalID)
	assert.Equal(t, "0xauthor", row.Proposer)
	assert.Equal(t, time.Unix(1700090000, 0).UTC(), row.EndTime)
	assert.Zero(t, row.VoteCount)
	assert.False(t, row.VotesSynced)
}

func TestHTTPClient_ListProposalsOmitsStateForAll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.EqualValues(t, DefaultProposalLimit, req.Variables["first"])
		where := req.Variables["where"].(map[string]any)
		assert.NotContains(t, where, "state")
		assert.NotContains(t, where, "created_gte")
		_, _ = w.Write([]byte(`{"data":{"proposals":null}}`))
	})

	proposals, err := client.ListProposals(context.Background(), "ens.eth", ProposalQuery{State: StateAll})
	require.NoError(t, err)
	assert.NotNil(t, proposals)
	assert.Empty(t, proposals)
}

func TestHTTPClient_ListVotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "0xp1", req.Variables["proposal"])
		assert.EqualValues(t, 1000, req.Variables["first"])
		_, _ = w.Write([]byte(`{"data":{"votes":[
			{"id":"v1","voter":"0xA","vp":100.5,"choice":1,"created":1700000200},
			{"id":"v2","voter":"0xB","vp":50,"choice":[2,1,3],"created":1700000300,"reason":"ranked"},
			{"id":"v3","voter":"0xC","vp":10,"choice":{"1":20,"3":80},"created":1700000400}
		]}}`))
	})

	votes, err := client.ListVotes(context.Background(), "0xp1", 0)
	require.NoError(t, err)
	require.Len(t, votes, 3)

	assert.Equal(t, 1, votes[0].ChoiceIndex())
	assert.Equal(t, 2, votes[1].ChoiceIndex())
	assert.Equal(t, 3, votes[2].ChoiceIndex())

	row := votes[1].ToModel("0xp1")
	assert.Equal(t, "0xp1-0xB", row.ID)
	assert.Equal(t, 50.0, row.VotingPower)
	assert.Equal(t, "[2,1,3]", row.ChoiceRaw)
	assert.Equal(t, "ranked", row.Reason)
}

func TestHTTPClient_ListVotesNullIsEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"null votes":   `{"data":{"votes":null}}`,
		"missing data": `{}`,
		"null data":    `{"data":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			votes, err := client.ListVotes(context.Background(), "0xp1", 10)
			require.NoError(t, err)
			assert.NotNil(t, votes)
			assert.Empty(t, votes)
		})
	}
}

func TestHTTPClient_GetSpace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "ens.eth", req.Variables["id"])
		_, _ = w.Write([]byte(`{"data":{"space":{"id":"ens.eth","name":"ENS","members":["0x1","0x2"],"followersCount":42}}}`))
	})

	space, err := client.GetSpace(context.Background(), "ens.eth")
	require.NoError(t, err)
	assert.Equal(t, "ENS", space.Name)
	assert.Equal(t, 42, space.FollowersCount)
	assert.Equal(t, 2, space.HolderEstimate(10000))
}

func TestHTTPClient_GetSpaceNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"space":null}}`))
	})

	_, err := client.GetSpace(context.Background(), "missing.eth")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		retryable bool
		message   string
	}{
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"bad where"},{"message":"second"}]}`, kind: KindGraphQL, message: "bad where"},
		{name: "server error", status: http.StatusBadGateway, body: `upstream down`, kind: KindHTTPStatus, retryable: true, message: "upstream down"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: ``, kind: KindHTTPStatus, retryable: true},
		{name: "client error", status: http.StatusBadRequest, body: `nope`, kind: KindHTTPStatus},
		{name: "bad json", status: http.StatusOK, body: `{"data":`, kind: KindDecode},
		{name: "wrong shape", status: http.StatusOK, body: `{"data":{"votes":"oops"}}`, kind: KindDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.ListVotes(context.Background(), "0xp1", 10)
			require.Error(t, err)

			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.kind, gwErr.Kind)
			assert.Equal(t, "list_votes", gwErr.Op)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestHTTPClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewHTTPWithOpts(Opts{Endpoint: endpoint, RPS: 1000, Burst: 10})
	_, err := client.GetSpace(context.Background(), "ens.eth")
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindTransport, gwErr.Kind)
	assert.True(t, IsRetryable(err))
}

func TestHTTPClient_RespectsContextWhileThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"votes":[]}}`))
	}))
	defer server.Close()
	client := NewHTTPWithOpts(Opts{Endpoint: server.URL, RPS: 0.001, Burst: 1})

	_, err := client.ListVotes(context.Background(), "0xp1", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.ListVotes(ctx, "0xp1", 1)
	require.Error(t, err)
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindTransport, gwErr.Kind)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(&Error{Kind: KindHTTPStatus, StatusCode: 503}))
	assert.False(t, IsRetryable(&Error{Kind: KindGraphQL}))
}
