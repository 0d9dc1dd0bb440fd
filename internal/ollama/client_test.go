// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example:11434/"})
	assert.Equal(t, "http://example:11434", c.BaseURL())
	assert.Equal(t, 60*time.Second, c.Timeout())

	c = NewClientWithConfig(nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		io.WriteString(w, `{"models":[
			{"name":"llama3:latest","size":4661224676,"details":{"family":"llama","parameter_size":"8B"}},
			{"name":"llava:7b","size":0}
		]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:latest", models[0].Name)
	assert.Equal(t, "8B", models[0].Details.ParameterSize)
	assert.Equal(t, "4.3 GiB", models[0].FormatSize())
	assert.Equal(t, "0 B", models[1].FormatSize())

	names, err := c.ModelNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:latest", "llava:7b"}, names)
}

func TestClient_ListModelsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ListModels(context.Background())
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestClient_CheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Ollama is running")
	}))
	assert.NoError(t, testClient(srv.URL, 5*time.Second).CheckRunning(context.Background()))
	srv.Close()

	err := testClient(srv.URL, time.Second).CheckRunning(context.Background())
	assert.True(t, IsTransport(err))
}

func TestClientError_Messages(t *testing.T) {
	assert.Equal(t, "Error: 404 - nope", protocolError(404, "nope").Error())
	assert.ErrorIs(t, protocolError(404, "nope"), ErrProtocol)
	assert.NotErrorIs(t, protocolError(404, "nope"), ErrTimeout)
}
