package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Snapshot reads and writes the whole station list as one JSON object.
type S3Snapshot struct {
	client S3Client
	bucket string
	key    string
	now    func() time.Time
}

func NewS3Snapshot(client S3Client, bucket, key string) *S3Snapshot {
	return &S3Snapshot{
		client: client,
		bucket: bucket,
		key:    key,
		now:    time.Now,
	}
}

func (c *S3Snapshot) String() string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, c.key)
}

// LoadStations returns an empty list when the snapshot object does not exist yet.
func (c *S3Snapshot) LoadStations(ctx context.Context) ([]models.Station, error) {
	if c.bucket == "" {
		return nil, fmt.Errorf("empty bucket name")
	}

	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			log.Warn().Str("snapshot", c.String()).Msg("Station snapshot not found")
			return []models.Station{}, nil
		}
		return nil, fmt.Errorf("getting snapshot from S3: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot body: %w", err)
	}
	return DecodeStations(data)
}

// SaveStations overwrites the snapshot with the given list.
func (c *S3Snapshot) SaveStations(ctx context.Context, stations []models.Station) error {
	if c.bucket == "" {
		return fmt.Errorf("empty bucket name")
	}

	record := snapshotRecord{
		Stations:    stations,
		LastUpdated: c.now().Unix(),
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("saving snapshot to S3: %w", err)
	}

	log.Debug().Int("station_count", len(stations)).Msg("Saved station snapshot to S3")
	return nil
}

// SnapshotStore serves reads from memory and writes through to an S3 snapshot.
type SnapshotStore struct {
	*MemoryStore
	snapshot *S3Snapshot
}

// NewSnapshotStore loads the snapshot once; a failure here is fatal to startup.
func NewSnapshotStore(ctx context.Context, snapshot *S3Snapshot) (*SnapshotStore, error) {
	memory := NewMemoryStore(nil)
	if err := memory.Load(ctx, snapshot); err != nil {
		return nil, err
	}
	return &SnapshotStore{MemoryStore: memory, snapshot: snapshot}, nil
}

// SaveStations writes the merged list to S3 and only then swaps it into
// memory. Concurrent saves are serialized so each snapshot holds every
// earlier save.
func (s *SnapshotStore) SaveStations(ctx context.Context, stations []models.Station) error {
	return s.MemoryStore.saveWith(ctx, stations, func(all []models.Station) error {
		return s.snapshot.SaveStations(ctx, all)
	})
}
