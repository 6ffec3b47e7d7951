package subjects

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubClient(status int, body string) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader([]byte(body))),
			Header:     make(http.Header),
		}, nil
	})}
}

func newTestFetcher(t *testing.T, client *http.Client) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Options{URL: "https://subjects.test/v3/list", Client: client, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return f
}

func TestFetchSubjectsDecodesFixture(t *testing.T) {
	fixture, err := os.ReadFile("testdata/subjects.json")
	require.NoError(t, err)

	subjects, err := newTestFetcher(t, stubClient(http.StatusOK, string(fixture))).FetchSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1)

	geo := subjects[0]
	assert.Equal(t, "geo", geo.ID)
	assert.Equal(t, "Geography", geo.Title)
	assert.Equal(t, len(geo.Questions), geo.QuestionCount)
	assert.True(t, geo.Consistent())
	require.Len(t, geo.Questions, 2)
	assert.Contains(t, geo.Questions[0].Answers, geo.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"Batumi", "Tbilisi", "Kutaisi", "Rustavi"}, geo.Questions[0].Answers)
}

func TestFetchSubjectsMismatchedCountUsesQuestionList(t *testing.T) {
	fixture, err := os.ReadFile("testdata/mismatched_count.json")
	require.NoError(t, err)

	var logs bytes.Buffer
	f, err := NewFetcher(Options{
		URL:    "https://subjects.test/v3/list",
		Client: stubClient(http.StatusOK, string(fixture)),
		Logger: zerolog.New(&logs),
	})
	require.NoError(t, err)

	subjects, err := f.FetchSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1)

	hist := subjects[0]
	assert.Equal(t, 5, hist.QuestionCount)
	assert.False(t, hist.Consistent())
	assert.Equal(t, 2, hist.Summary().QuestionCount)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "question count does not match payload")
	assert.Contains(t, logs.String(), `"subject":"hist"`)

	session, err := app.NewSession("s-1", "u1", hist)
	require.NoError(t, err)
	assert.Equal(t, 2, session.Progress().QuestionCount)

	advances := 0
	for session.Progress().State != domain.StateCompleted {
		require.Less(t, advances, len(hist.Questions), "session must complete after the listed questions")
		_, err := session.SubmitAnswer(hist.Questions[advances].CorrectAnswer)
		require.NoError(t, err)
		_, _, err = session.Advance()
		require.NoError(t, err)
		advances++
	}
	assert.Equal(t, 2, advances)
	assert.Equal(t, 2, session.Score())
	assert.Equal(t, 2, session.Record().QuestionCount)
}

func TestFetchSubjectsKeepsUpstreamOrder(t *testing.T) {
	body := `[{"id":"z","quizTitle":"Zoology","questions":[]},{"id":"a","quizTitle":"Art","questions":[]}]`

	subjects, err := newTestFetcher(t, stubClient(http.StatusOK, body)).FetchSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "z", subjects[0].ID)
	assert.Equal(t, "a", subjects[1].ID)
}

func TestFetchSubjectsMalformedJSON(t *testing.T) {
	_, err := newTestFetcher(t, stubClient(http.StatusOK, `[{"id": "geo",`)).FetchSubjects(context.Background())
	require.ErrorIs(t, err, ErrDecode)
}

func TestFetchSubjectsRejectsMissingFields(t *testing.T) {
	body := `[{"id":"geo","quizTitle":"Geography","questions":[{"answers":["A"],"correctAnswer":"A"}]}]`

	_, err := newTestFetcher(t, stubClient(http.StatusOK, body)).FetchSubjects(context.Background())
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFetchSubjectsNonOKStatus(t *testing.T) {
	_, err := newTestFetcher(t, stubClient(http.StatusBadGateway, "")).FetchSubjects(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFetchSubjectsTransportError(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}

	_, err := newTestFetcher(t, client).FetchSubjects(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestNewFetcherRejectsMalformedURL(t *testing.T) {
	for _, raw := range []string{"", "::nope", "ftp://host/x", "http:///path"} {
		_, err := NewFetcher(Options{URL: raw})
		assert.ErrorIs(t, err, ErrInvalidEndpoint, raw)
	}
}

func TestFetchAsyncDeliversExactlyOnce(t *testing.T) {
	ch := newTestFetcher(t, stubClient(http.StatusOK, "not-json")).FetchAsync(context.Background())

	select {
	case res, ok := <-ch:
		require.True(t, ok)
		assert.ErrorIs(t, res.Err, ErrDecode)
		assert.Nil(t, res.Subjects)
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
	}

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after the single result")
}

func TestFetchSubjectsRetriesWhenConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	f, err := NewFetcher(Options{
		URL:    server.URL,
		Retry:  &Retry{MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond, MaxAttempts: 3},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	subjects, err := f.FetchSubjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subjects)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte(`[] []`)))
	require.ErrorIs(t, err, ErrDecode)
}
