package api

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/fizy-app/fizy/backend-go/internal/models"
)

const (
	ResponseTypeStations = "stations"
	ResponseTypeStation  = "station"
	ResponseTypeError    = "error"
)

// ErrorKind is the machine-readable part of an error body.
type ErrorKind string

const (
	KindStorageUnavailable ErrorKind = "storage_unavailable"
	KindInvalidQuery       ErrorKind = "invalid_query"
	KindNotFound           ErrorKind = "not_found"
	KindRequestTimeout     ErrorKind = "request_timeout"
)

func (k ErrorKind) StatusCode() int {
	switch k {
	case KindInvalidQuery:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRequestTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

func (r APIResponse) GetResponseType() string {
	return r.ResponseType
}

type StationsResponse struct {
	APIResponse
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
	Count int                    `json:"count"`
	Data  []models.StationResult `json:"data"`
}

type StationResponse struct {
	APIResponse
	Data models.Station `json:"data"`
}

type ErrorResponse struct {
	APIResponse
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func NewStationsResponse(result models.Result) *StationsResponse {
	data := result.Items
	if data == nil {
		data = []models.StationResult{}
	}
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: ResponseTypeStations},
		Page:        result.Page,
		Limit:       result.Limit,
		Count:       len(data),
		Data:        data,
	}
}

func NewStationResponse(station models.Station) *StationResponse {
	return &StationResponse{
		APIResponse: APIResponse{ResponseType: ResponseTypeStation},
		Data:        station,
	}
}

func NewErrorResponse(kind ErrorKind, message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: ResponseTypeError},
		Kind:        kind,
		Message:     message,
	}
}

// Headers returns the headers every response carries.
func Headers() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error(KindStorageUnavailable, "Internal Server Error")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    Headers(),
		Body:       string(jsonBody),
	}, nil
}

func Error(kind ErrorKind, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(kind, message))

	return events.APIGatewayProxyResponse{
		StatusCode: kind.StatusCode(),
		Headers:    Headers(),
		Body:       string(body),
	}, nil
}
