package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/fizy-app/fizy/backend-go/pkg/http/client"
)

// Source yields a full station list, used to seed a MemoryStore.
type Source interface {
	fmt.Stringer
	LoadStations(ctx context.Context) ([]models.Station, error)
}

// snapshotRecord is the envelope written by S3Snapshot. Seed files may use it
// or be a bare JSON array of stations.
type snapshotRecord struct {
	Stations    []models.Station `json:"stations"`
	LastUpdated int64            `json:"lastUpdated"`
}

type FileSource struct {
	Path string
}

func (f FileSource) String() string { return "file " + f.Path }

func (f FileSource) LoadStations(ctx context.Context) ([]models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return DecodeStations(data)
}

type HTTPSource struct {
	client client.Interface
	url    string
}

func NewHTTPSource(c client.Interface, url string) *HTTPSource {
	return &HTTPSource{client: c, url: url}
}

func (h *HTTPSource) String() string { return "url " + h.url }

func (h *HTTPSource) LoadStations(ctx context.Context) ([]models.Station, error) {
	resp, err := h.client.Get(ctx, h.url)
	if err != nil {
		return nil, fmt.Errorf("fetching station list: %w", err)
	}
	return DecodeStations(resp.Body)
}

// DecodeStations accepts either a JSON array of stations or a snapshot
// envelope with a "stations" field.
func DecodeStations(data []byte) ([]models.Station, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decoding stations: empty document")
	}

	if trimmed[0] == '[' {
		var stations []models.Station
		if err := json.Unmarshal(trimmed, &stations); err != nil {
			return nil, fmt.Errorf("decoding station array: %w", err)
		}
		return stations, nil
	}

	var record snapshotRecord
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("decoding station snapshot: %w", err)
	}
	return record.Stations, nil
}
