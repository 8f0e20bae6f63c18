package utils

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorCounts(t *testing.T) {
	mc := NewMetricsCollector()

	mc.IncrementRequests("/v1/api/posts", 201)
	mc.IncrementRequests("/v1/api/posts", 200)
	mc.IncrementRequests("/v1/api/posts", 404)
	mc.IncrementErrors(ErrDuplicateVote)
	mc.IncrementVotes("post", "upvote")
	mc.AddOperationLatency("vote_post", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.requestCount.WithLabelValues("/v1/api/posts", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.requestCount.WithLabelValues("/v1/api/posts", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.errorCount.WithLabelValues(ErrDuplicateVote)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.voteCount.WithLabelValues("post", "upvote")))
}

func TestMetricsHandlerExposesForumMetrics(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementVotes("comment", "downvote")

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `forum_votes_total{direction="downvote",target="comment"} 1`)
}
