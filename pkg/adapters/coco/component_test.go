package coco_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/relay/pkg/adapters/coco"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_Exchange(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"response": "What's your name?", "component_done": false, "updated_context": {"step": 1}}`))
	}))
	defer srv.Close()

	c, err := coco.New("register_vp3", coco.WithBaseURL(srv.URL), coco.WithAPIKey("k"))
	require.NoError(t, err)

	res, err := c.Process(context.Background(), "sess-1", "open an account")
	require.NoError(t, err)

	assert.Equal(t, "What's your name?", res.Reply)
	assert.False(t, res.Done)
	assert.Equal(t, "/api/exchange/register_vp3/sess-1", gotPath)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "open an account", gotBody["user_input"])
}

func TestProcess_DoneAndFailedRelease(t *testing.T) {
	for name, body := range map[string]string{
		"done":   `{"response": "Account created.", "component_done": true}`,
		"failed": `{"response": "Sorry, something broke.", "component_failed": true}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c, err := coco.New("x", coco.WithBaseURL(srv.URL))
			require.NoError(t, err)

			res, err := c.Process(context.Background(), "s", "hi")
			require.NoError(t, err)
			assert.True(t, res.Done)
		})
	}
}

func TestProcess_NoAPIKeyHeaderByDefault(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Api-Key"]
		_, _ = w.Write([]byte(`{"response": "ok"}`))
	}))
	defer srv.Close()

	c, err := coco.New("x", coco.WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Process(context.Background(), "s", "hi")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestProcess_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"decode": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			c, err := coco.New("x", coco.WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = c.Process(context.Background(), "s", "hi")
			assert.ErrorIs(t, err, domain.ErrTurnProcessingFailed)
		})
	}
}

func TestProcess_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := coco.New("x", coco.WithBaseURL(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Process(ctx, "s", "hi")
	assert.ErrorIs(t, err, domain.ErrTurnProcessingFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RequiresID(t *testing.T) {
	_, err := coco.New("")
	assert.Error(t, err)
}
