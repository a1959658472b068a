// dynstore/store.go
package dynstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medassureai/artifact-gateway/envloader"
	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

// Store normalizes document verbs against one DynamoDB table. Requests are
// validated before any call leaves the process, raw SDK failures are
// classified into the gateway taxonomy, and transient ones are retried under
// the configured policy.
type Store struct {
	client  DynamoDBAPI
	cfg     TableConfig
	policy  gateway.Policy
	metrics observability.Provider
}

// Option adjusts a Store during construction.
type Option func(*Store)

// WithPolicy overrides the default retry policy.
func WithPolicy(p gateway.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithMetrics emits call and retry counters to the given provider.
func WithMetrics(m observability.Provider) Option {
	return func(s *Store) { s.metrics = m }
}

// New builds a Store. An empty table name falls back to the environment.
func New(client DynamoDBAPI, cfg TableConfig, opts ...Option) *Store {
	if cfg.TableName == "" {
		_ = envloader.Load(&cfg)
	}
	if cfg.PartitionKey == "" {
		cfg.PartitionKey = "PK"
	}

	s := &Store{
		client: client,
		cfg:    cfg,
		policy: gateway.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics != nil && s.policy.OnRetry == nil {
		s.policy.OnRetry = func(op string, attempt int, delay time.Duration) {
			_ = s.metrics.Count("dynamodb.retries", 1, []string{"operation:" + op})
		}
	}
	return s
}

// Put writes one document. The item must carry the table's key attributes.
func (s *Store) Put(ctx context.Context, req PutRequest) (PutResult, error) {
	if err := s.validateItem("item", req.Item); err != nil {
		s.observe("put_item", err)
		return PutResult{Envelope: gateway.Fail("put_item", "", err)}, err
	}

	av, err := attributevalue.MarshalMap(req.Item)
	if err != nil {
		err = gateway.NewValidationError("item", fmt.Sprintf("cannot be encoded: %v", err))
		s.observe("put_item", err)
		return PutResult{Envelope: gateway.Fail("put_item", "", err)}, err
	}

	target := s.describeItemKey(req.Item)
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.TableName),
		Item:      av,
	}

	_, err = gateway.Do(ctx, "put_item", s.policy, func(ctx context.Context) (*dynamodb.PutItemOutput, error) {
		out, err := s.client.PutItem(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	s.observe("put_item", err)
	if err != nil {
		return PutResult{Envelope: gateway.Fail("put_item", target, err)}, err
	}
	return PutResult{Envelope: gateway.OK(), Item: req.Item}, nil
}

// Get reads one document by its full key with a consistent read.
func (s *Store) Get(ctx context.Context, req GetRequest) (GetResult, error) {
	if err := s.validateKey(req.Key); err != nil {
		s.observe("get_item", err)
		return GetResult{Envelope: gateway.Fail("get_item", "", err)}, err
	}

	key, err := attributevalue.MarshalMap(req.Key)
	if err != nil {
		err = gateway.NewValidationError("key", fmt.Sprintf("cannot be encoded: %v", err))
		s.observe("get_item", err)
		return GetResult{Envelope: gateway.Fail("get_item", "", err)}, err
	}

	target := describeKey(req.Key)
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.cfg.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	out, err := gateway.Do(ctx, "get_item", s.policy, func(ctx context.Context) (*dynamodb.GetItemOutput, error) {
		out, err := s.client.GetItem(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})

	var doc map[string]any
	if err == nil {
		if len(out.Item) == 0 {
			err = gateway.Permanent(gateway.KindNotFound, ErrItemNotFound)
		} else if uerr := attributevalue.UnmarshalMap(out.Item, &doc); uerr != nil {
			err = gateway.Permanent(gateway.KindPermanent, fmt.Errorf("dynstore: decode item: %w", uerr))
		}
	}
	s.observe("get_item", err)
	if err != nil {
		return GetResult{Envelope: gateway.Fail("get_item", target, err)}, err
	}
	return GetResult{Envelope: gateway.OK(), Item: doc}, nil
}

// Update applies a SET update to the named attributes and returns the
// resulting item. Key attributes cannot be updated.
func (s *Store) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	if err := s.validateUpdate(req); err != nil {
		s.observe("update_item", err)
		return UpdateResult{Envelope: gateway.Fail("update_item", "", err)}, err
	}

	key, err := attributevalue.MarshalMap(req.Key)
	if err != nil {
		err = gateway.NewValidationError("key", fmt.Sprintf("cannot be encoded: %v", err))
		s.observe("update_item", err)
		return UpdateResult{Envelope: gateway.Fail("update_item", "", err)}, err
	}

	upd := expression.UpdateBuilder{}
	for name, value := range req.Updates {
		upd = upd.Set(expression.Name(name), expression.Value(value))
	}

	target := describeKey(req.Key)
	expr, err := expression.NewBuilder().WithUpdate(upd).Build()
	if err != nil {
		err = gateway.Permanent(gateway.KindPermanent, fmt.Errorf("dynstore: build update expression: %w", err))
		s.observe("update_item", err)
		return UpdateResult{Envelope: gateway.Fail("update_item", target, err)}, err
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.cfg.TableName),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}

	out, err := gateway.Do(ctx, "update_item", s.policy, func(ctx context.Context) (*dynamodb.UpdateItemOutput, error) {
		out, err := s.client.UpdateItem(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})

	var doc map[string]any
	if err == nil {
		if uerr := attributevalue.UnmarshalMap(out.Attributes, &doc); uerr != nil {
			err = gateway.Permanent(gateway.KindPermanent, fmt.Errorf("dynstore: decode attributes: %w", uerr))
		}
	}
	s.observe("update_item", err)
	if err != nil {
		return UpdateResult{Envelope: gateway.Fail("update_item", target, err)}, err
	}
	return UpdateResult{Envelope: gateway.OK(), Attributes: doc}, nil
}

// Delete removes one document by its full key. Deleting an absent key
// succeeds; DynamoDB deletes are idempotent.
func (s *Store) Delete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	if err := s.validateKey(req.Key); err != nil {
		s.observe("delete_item", err)
		return DeleteResult{Envelope: gateway.Fail("delete_item", "", err)}, err
	}

	key, err := attributevalue.MarshalMap(req.Key)
	if err != nil {
		err = gateway.NewValidationError("key", fmt.Sprintf("cannot be encoded: %v", err))
		s.observe("delete_item", err)
		return DeleteResult{Envelope: gateway.Fail("delete_item", "", err)}, err
	}

	target := describeKey(req.Key)
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       key,
	}

	_, err = gateway.Do(ctx, "delete_item", s.policy, func(ctx context.Context) (*dynamodb.DeleteItemOutput, error) {
		out, err := s.client.DeleteItem(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	s.observe("delete_item", err)
	if err != nil {
		return DeleteResult{Envelope: gateway.Fail("delete_item", target, err)}, err
	}
	return DeleteResult{Envelope: gateway.OK(), Key: req.Key}, nil
}

// Query runs a key-condition query and returns one page of documents.
func (s *Store) Query(ctx context.Context, req QueryRequest) (ListResult, error) {
	if err := validateQuery(req); err != nil {
		s.observe("query", err)
		return ListResult{Envelope: gateway.Fail("query", "", err)}, err
	}

	values, err := attributevalue.MarshalMap(req.Values)
	if err != nil {
		err = gateway.NewValidationError("expression_attribute_values", fmt.Sprintf("cannot be encoded: %v", err))
		s.observe("query", err)
		return ListResult{Envelope: gateway.Fail("query", "", err)}, err
	}

	startKey, err := decodeCursor(req.Cursor)
	if err != nil {
		s.observe("query", err)
		return ListResult{Envelope: gateway.Fail("query", "", err)}, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		KeyConditionExpression:    aws.String(req.KeyCondition),
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
	}
	if len(req.Names) > 0 {
		input.ExpressionAttributeNames = req.Names
	}
	if req.IndexName != "" {
		input.IndexName = aws.String(req.IndexName)
	}
	if req.Filter != "" {
		input.FilterExpression = aws.String(req.Filter)
	}
	if req.Limit > 0 {
		input.Limit = aws.Int32(req.Limit)
	}

	out, err := gateway.Do(ctx, "query", s.policy, func(ctx context.Context) (*dynamodb.QueryOutput, error) {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	if err != nil {
		s.observe("query", err)
		return ListResult{Envelope: gateway.Fail("query", req.KeyCondition, err)}, err
	}

	result, err := s.collectPage("query", req.KeyCondition, out.Items, out.LastEvaluatedKey)
	if err == nil {
		result.ScannedCount = int(out.ScannedCount)
	}
	s.observe("query", err)
	return result, err
}

// Scan walks the table and returns one page of documents.
func (s *Store) Scan(ctx context.Context, req ScanRequest) (ListResult, error) {
	if req.Limit < 0 {
		err := gateway.NewValidationError("limit", "must not be negative")
		s.observe("scan", err)
		return ListResult{Envelope: gateway.Fail("scan", "", err)}, err
	}

	var values map[string]types.AttributeValue
	if len(req.Values) > 0 {
		var err error
		values, err = attributevalue.MarshalMap(req.Values)
		if err != nil {
			err = gateway.NewValidationError("expression_attribute_values", fmt.Sprintf("cannot be encoded: %v", err))
			s.observe("scan", err)
			return ListResult{Envelope: gateway.Fail("scan", "", err)}, err
		}
	}

	startKey, err := decodeCursor(req.Cursor)
	if err != nil {
		s.observe("scan", err)
		return ListResult{Envelope: gateway.Fail("scan", "", err)}, err
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.cfg.TableName),
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKey,
	}
	if len(req.Names) > 0 {
		input.ExpressionAttributeNames = req.Names
	}
	if req.Filter != "" {
		input.FilterExpression = aws.String(req.Filter)
	}
	if req.Limit > 0 {
		input.Limit = aws.Int32(req.Limit)
	}

	out, err := gateway.Do(ctx, "scan", s.policy, func(ctx context.Context) (*dynamodb.ScanOutput, error) {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	if err != nil {
		s.observe("scan", err)
		return ListResult{Envelope: gateway.Fail("scan", req.Filter, err)}, err
	}

	result, err := s.collectPage("scan", req.Filter, out.Items, out.LastEvaluatedKey)
	if err == nil {
		result.ScannedCount = int(out.ScannedCount)
	}
	s.observe("scan", err)
	return result, err
}

// BatchPut writes documents in chunks of 25. Unprocessed leftovers of a chunk
// are retried under the policy before the next chunk starts.
func (s *Store) BatchPut(ctx context.Context, req BatchPutRequest) (BatchPutResult, error) {
	if len(req.Items) == 0 {
		err := gateway.NewValidationError("items", "is required")
		s.observe("batch_put", err)
		return BatchPutResult{Envelope: gateway.Fail("batch_put", "", err)}, err
	}

	writes := make([]types.WriteRequest, 0, len(req.Items))
	for i, item := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if err := s.validateItem(field, item); err != nil {
			s.observe("batch_put", err)
			return BatchPutResult{Envelope: gateway.Fail("batch_put", "", err)}, err
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			err = gateway.NewValidationError(field, fmt.Sprintf("cannot be encoded: %v", err))
			s.observe("batch_put", err)
			return BatchPutResult{Envelope: gateway.Fail("batch_put", "", err)}, err
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	// DynamoDB caps BatchWriteItem at 25 operations.
	for i := 0; i < len(writes); i += 25 {
		end := i + 25
		if end > len(writes) {
			end = len(writes)
		}

		pending := writes[i:end]
		_, err := gateway.Do(ctx, "batch_put", s.policy, func(ctx context.Context) (struct{}, error) {
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					s.cfg.TableName: pending,
				},
			})
			if err != nil {
				return struct{}{}, classify(err)
			}
			if rest := out.UnprocessedItems[s.cfg.TableName]; len(rest) > 0 {
				pending = rest
				return struct{}{}, gateway.Transient(fmt.Errorf("dynstore: %d unprocessed items", len(rest)))
			}
			return struct{}{}, nil
		})
		if err != nil {
			s.observe("batch_put", err)
			return BatchPutResult{Envelope: gateway.Fail("batch_put", "", err)}, err
		}
	}

	s.observe("batch_put", nil)
	return BatchPutResult{Envelope: gateway.OK(), Written: len(req.Items)}, nil
}

func (s *Store) collectPage(verb, target string, items []map[string]types.AttributeValue, lastKey map[string]types.AttributeValue) (ListResult, error) {
	docs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var doc map[string]any
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			err = gateway.Permanent(gateway.KindPermanent, fmt.Errorf("dynstore: decode item: %w", err))
			return ListResult{Envelope: gateway.Fail(verb, target, err)}, err
		}
		docs = append(docs, doc)
	}

	cursor, err := encodeCursor(lastKey)
	if err != nil {
		err = gateway.Permanent(gateway.KindPermanent, err)
		return ListResult{Envelope: gateway.Fail(verb, target, err)}, err
	}

	return ListResult{
		Envelope:   gateway.OK(),
		Items:      docs,
		Count:      len(docs),
		NextCursor: cursor,
	}, nil
}

func (s *Store) validateItem(field string, item map[string]any) error {
	if len(item) == 0 {
		return gateway.NewValidationError(field, "is required")
	}
	if _, ok := item[s.cfg.PartitionKey]; !ok {
		return gateway.NewValidationError(field, fmt.Sprintf("is missing key attribute %q", s.cfg.PartitionKey))
	}
	if s.cfg.SortKey != "" {
		if _, ok := item[s.cfg.SortKey]; !ok {
			return gateway.NewValidationError(field, fmt.Sprintf("is missing key attribute %q", s.cfg.SortKey))
		}
	}
	return nil
}

func (s *Store) validateKey(key map[string]any) error {
	if len(key) == 0 {
		return gateway.NewValidationError("key", "is required")
	}
	if _, ok := key[s.cfg.PartitionKey]; !ok {
		return gateway.NewValidationError("key", fmt.Sprintf("is missing attribute %q", s.cfg.PartitionKey))
	}
	if s.cfg.SortKey != "" {
		if _, ok := key[s.cfg.SortKey]; !ok {
			return gateway.NewValidationError("key", fmt.Sprintf("is missing attribute %q", s.cfg.SortKey))
		}
	}
	for name := range key {
		if name != s.cfg.PartitionKey && name != s.cfg.SortKey {
			return gateway.NewValidationError("key", fmt.Sprintf("has unexpected attribute %q", name))
		}
	}
	return nil
}

func (s *Store) validateUpdate(req UpdateRequest) error {
	if err := s.validateKey(req.Key); err != nil {
		return err
	}
	if len(req.Updates) == 0 {
		return gateway.NewValidationError("updates", "is required")
	}
	for name := range req.Updates {
		if name == s.cfg.PartitionKey || name == s.cfg.SortKey {
			return gateway.NewValidationError("updates", fmt.Sprintf("must not modify key attribute %q", name))
		}
	}
	return nil
}

func validateQuery(req QueryRequest) error {
	if req.KeyCondition == "" {
		return gateway.NewValidationError("key_condition_expression", "is required")
	}
	if len(req.Values) == 0 {
		return gateway.NewValidationError("expression_attribute_values", "is required")
	}
	if req.Limit < 0 {
		return gateway.NewValidationError("limit", "must not be negative")
	}
	return nil
}

func (s *Store) describeItemKey(item map[string]any) string {
	key := map[string]any{s.cfg.PartitionKey: item[s.cfg.PartitionKey]}
	if s.cfg.SortKey != "" {
		key[s.cfg.SortKey] = item[s.cfg.SortKey]
	}
	return describeKey(key)
}

// describeKey renders a key deterministically for error messages.
func describeKey(key map[string]any) string {
	b, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *Store) observe(verb string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	_ = s.metrics.Count("dynamodb.calls", 1, []string{"verb:" + verb, "outcome:" + outcome})
}
