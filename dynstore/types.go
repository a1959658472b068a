// dynstore/types.go
package dynstore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/medassureai/artifact-gateway/gateway"
)

// ErrItemNotFound is returned when a get targets a key that has no item.
var ErrItemNotFound = errors.New("dynstore: item not found")

// DynamoDBAPI abstracts the DynamoDB client so tests can inject fakes.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// TableConfig describes the table the store talks to.
type TableConfig struct {
	TableName    string `env:"DYNAMODB_TABLE_NAME" envDefault:"MedAssureAI_Artifacts"`
	PartitionKey string `env:"DYNAMODB_PK_ATTRIBUTE" envDefault:"PK"`
	SortKey      string `env:"DYNAMODB_SK_ATTRIBUTE" envDefault:"SK"` // empty for simple-key tables
}

// PutRequest writes one document.
type PutRequest struct {
	Item map[string]any `json:"item"`
}

// GetRequest reads one document by its full key.
type GetRequest struct {
	Key map[string]any `json:"key"`
}

// UpdateRequest applies a SET update to the named attributes.
type UpdateRequest struct {
	Key     map[string]any `json:"key"`
	Updates map[string]any `json:"updates"`
}

// DeleteRequest removes one document by its full key.
type DeleteRequest struct {
	Key map[string]any `json:"key"`
}

// QueryRequest runs a key-condition query, optionally against an index.
// Expressions use DynamoDB syntax and reference values by :token.
type QueryRequest struct {
	KeyCondition string            `json:"key_condition_expression"`
	Values       map[string]any    `json:"expression_attribute_values"`
	Names        map[string]string `json:"expression_attribute_names,omitempty"`
	IndexName    string            `json:"index_name,omitempty"`
	Filter       string            `json:"filter_expression,omitempty"`
	Limit        int32             `json:"limit,omitempty"`
	Cursor       string            `json:"cursor,omitempty"`
}

// ScanRequest walks the table, optionally filtered.
type ScanRequest struct {
	Filter string            `json:"filter_expression,omitempty"`
	Values map[string]any    `json:"expression_attribute_values,omitempty"`
	Names  map[string]string `json:"expression_attribute_names,omitempty"`
	Limit  int32             `json:"limit,omitempty"`
	Cursor string            `json:"cursor,omitempty"`
}

// BatchPutRequest writes many documents in chunks of 25.
type BatchPutRequest struct {
	Items []map[string]any `json:"items"`
}

// PutResult confirms a write.
type PutResult struct {
	gateway.Envelope
	Item map[string]any `json:"item,omitempty"`
}

// GetResult carries the document that was read.
type GetResult struct {
	gateway.Envelope
	Item map[string]any `json:"item,omitempty"`
}

// UpdateResult carries the attributes after the update was applied.
type UpdateResult struct {
	gateway.Envelope
	Attributes map[string]any `json:"attributes,omitempty"`
}

// DeleteResult confirms a delete.
type DeleteResult struct {
	gateway.Envelope
	Key map[string]any `json:"key,omitempty"`
}

// ListResult carries a page of documents from a query or scan.
type ListResult struct {
	gateway.Envelope
	Items        []map[string]any `json:"items"`
	Count        int              `json:"count"`
	ScannedCount int              `json:"scanned_count,omitempty"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

// BatchPutResult confirms a batch write.
type BatchPutResult struct {
	gateway.Envelope
	Written int `json:"written"`
}
