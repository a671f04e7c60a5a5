package httpclient

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	c := New(cfg)
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(c.Close)
	return c
}

func TestGetInjectsUserAgent(t *testing.T) {
	c := newMockedClient(t, nil)

	var gotUserAgent string
	httpmock.RegisterResponder(http.MethodGet, "http://example.com/image.png",
		func(req *http.Request) (*http.Response, error) {
			gotUserAgent = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, "bytes"), nil
		})

	resp, err := c.Get(context.Background(), "http://example.com/image.png")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "bytes", string(body))
	assert.Equal(t, defaultUserAgent, gotUserAgent)
}

func TestDoKeepsCallerUserAgent(t *testing.T) {
	c := newMockedClient(t, nil)

	var gotUserAgent string
	httpmock.RegisterResponder(http.MethodGet, "http://example.com/",
		func(req *http.Request) (*http.Response, error) {
			gotUserAgent = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, ""), nil
		})

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom-agent/1.0")

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "custom-agent/1.0", gotUserAgent)
}

func TestDoNilRequest(t *testing.T) {
	c := New(nil)
	defer c.Close()

	_, err := c.Do(context.Background(), nil)
	assert.Error(t, err)
}

func TestHooksAreCalled(t *testing.T) {
	c := newMockedClient(t, nil)

	httpmock.RegisterResponder(http.MethodGet, "http://example.com/hooked",
		httpmock.NewStringResponder(http.StatusOK, "ok"))

	var beforeCalled, afterCalled bool
	c.SetBeforeRequestHook(func(req *http.Request) {
		beforeCalled = true
	})
	c.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error) {
		afterCalled = true
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	resp, err := c.Get(context.Background(), "http://example.com/hooked")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.True(t, beforeCalled)
	assert.True(t, afterCalled)
}

func TestConfigDefaultsApplied(t *testing.T) {
	c := New(&Config{UserAgent: "tester"})
	defer c.Close()

	assert.Equal(t, DefaultTimeout, c.defaultTimeout)
	assert.Equal(t, "tester", c.userAgent)
}

func TestNilConfigUsesDefaults(t *testing.T) {
	c := New(nil)
	defer c.Close()

	assert.Equal(t, 30*time.Second, c.defaultTimeout)
	assert.Equal(t, defaultUserAgent, c.userAgent)
}
