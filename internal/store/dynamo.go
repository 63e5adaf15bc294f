package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fizy-app/fizy/backend-go/internal/config"
	"github.com/fizy-app/fizy/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

// DynamoDB caps BatchWriteItem at 25 requests.
const maxDynamoBatchSize = 25

type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore keeps one item per station, keyed by the numeric "id" attribute.
type DynamoStore struct {
	client       DynamoDBClient
	table        string
	batchSize    int
	maxRetries   int
	queryTimeout time.Duration
	backoff      time.Duration
}

func NewDynamoStore(client DynamoDBClient, cfg *config.StoreConfig) *DynamoStore {
	if cfg == nil {
		cfg = config.DefaultStoreConfig()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > maxDynamoBatchSize {
		batchSize = maxDynamoBatchSize
	}
	maxRetries := cfg.MaxBatchRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &DynamoStore{
		client:       client,
		table:        cfg.DynamoTable,
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		queryTimeout: cfg.QueryTimeout,
		backoff:      100 * time.Millisecond,
	}
}

// FindStations scans the table, pushing the bounding box down as a filter
// expression. The search term is left to the engine.
func (s *DynamoStore) FindStations(ctx context.Context, criteria models.FilterCriteria) ([]models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}
	if box := criteria.BoundingBox; box != nil {
		input.FilterExpression = aws.String("#lat BETWEEN :minLat AND :maxLat AND #lng BETWEEN :minLng AND :maxLng")
		input.ExpressionAttributeNames = map[string]string{
			"#lat": "lat",
			"#lng": "lng",
		}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":minLat": numberValue(box.MinLat),
			":maxLat": numberValue(box.MaxLat),
			":minLng": numberValue(box.MinLng),
			":maxLng": numberValue(box.MaxLng),
		}
	}

	stations := make([]models.Station, 0)
	pages := 0
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scanning stations in DynamoDB: %w", err)
		}
		pages++

		var page []models.Station
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling stations: %w", err)
		}
		stations = append(stations, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sortByID(stations)

	log.Debug().
		Int("station_count", len(stations)).
		Int("pages", pages).
		Msg("Scanned stations from DynamoDB")
	return stations, nil
}

func (s *DynamoStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting station from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var station models.Station
	if err := attributevalue.UnmarshalMap(result.Item, &station); err != nil {
		return nil, fmt.Errorf("unmarshaling station: %w", err)
	}
	return &station, nil
}

// SaveStations writes stations in batches, resubmitting unprocessed items with
// exponential backoff until maxRetries is exhausted.
func (s *DynamoStore) SaveStations(ctx context.Context, stations []models.Station) error {
	for i := range stations {
		if err := stations[i].Validate(); err != nil {
			return fmt.Errorf("invalid station %d: %w", stations[i].ID, err)
		}
	}

	for i := 0; i < len(stations); i += s.batchSize {
		end := i + s.batchSize
		if end > len(stations) {
			end = len(stations)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, station := range stations[i:end] {
			item, err := attributevalue.MarshalMap(station)
			if err != nil {
				return fmt.Errorf("marshaling station %d: %w", station.ID, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{
					Item: item,
				},
			})
		}

		if err := s.writeBatch(ctx, writeRequests); err != nil {
			return err
		}
	}

	log.Debug().Int("station_count", len(stations)).Msg("Saved stations to DynamoDB")
	return nil
}

func (s *DynamoStore) writeBatch(ctx context.Context, pending []types.WriteRequest) error {
	var lastErr error
	for retry := 0; retry < s.maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<(retry-1)) * s.backoff):
			}
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.table: pending,
			},
		})
		if err != nil {
			lastErr = err
			continue
		}

		pending = out.UnprocessedItems[s.table]
		if len(pending) == 0 {
			return nil
		}
		lastErr = fmt.Errorf("%d items unprocessed", len(pending))
		log.Warn().Int("unprocessed", len(pending)).Msg("Retrying unprocessed station writes")
	}

	return fmt.Errorf("batch writing stations after %d retries: %w", s.maxRetries, lastErr)
}

func (s *DynamoStore) Close() {}

func numberValue(f float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}
