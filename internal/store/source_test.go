package store

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/fizy-app/fizy/backend-go/pkg/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantIDs []int64
		wantErr bool
	}{
		{
			name:    "bare array",
			data:    `[{"id":1,"name":"Posto Shell","lat":-22.0195,"lng":-47.891}]`,
			wantIDs: []int64{1},
		},
		{
			name:    "snapshot envelope",
			data:    ` {"stations":[{"id":2,"name":"Ipiranga"},{"id":3,"name":"BR"}],"lastUpdated":1714564800}`,
			wantIDs: []int64{2, 3},
		},
		{
			name:    "fuels are decoded",
			data:    `[{"id":4,"name":"Ale","fuels":{"diesel":{"price":6.19}}}]`,
			wantIDs: []int64{4},
		},
		{name: "empty document", data: "  ", wantErr: true},
		{name: "malformed array", data: `[{"id":"one"}]`, wantErr: true},
		{name: "malformed object", data: `{"stations":`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeStations([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, stationIDs(got))
		})
	}
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stations.json")
	data, err := json.Marshal(createTestStations())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	src := FileSource{Path: path}
	stations, err := src.LoadStations(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 3)
	assert.Contains(t, src.String(), path)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.LoadStations(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		getFunc func(ctx context.Context, path string) (*client.Response, error)
		wantLen int
		wantErr bool
	}{
		{
			name: "successful fetch",
			getFunc: func(ctx context.Context, path string) (*client.Response, error) {
				assert.Equal(t, "https://data.example.com/stations.json", path)
				return &client.Response{
					StatusCode: http.StatusOK,
					Body:       []byte(`[{"id":1,"name":"Posto Shell"},{"id":2,"name":"Ipiranga"}]`),
				}, nil
			},
			wantLen: 2,
		},
		{
			name: "fetch error",
			getFunc: func(ctx context.Context, path string) (*client.Response, error) {
				return nil, &client.StatusError{URL: path, StatusCode: http.StatusBadGateway}
			},
			wantErr: true,
		},
		{
			name: "invalid body",
			getFunc: func(ctx context.Context, path string) (*client.Response, error) {
				return &client.Response{StatusCode: http.StatusOK, Body: []byte("<html>")}, nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := NewHTTPSource(&client.Client{GetFunc: tt.getFunc}, "https://data.example.com/stations.json")
			got, err := src.LoadStations(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}
