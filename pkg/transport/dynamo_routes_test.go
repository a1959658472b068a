package transport

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassureai/artifact-gateway/artifacts"
	"github.com/medassureai/artifact-gateway/dynstore"
)

func newDynamoRouter(client *dynstore.MockClient) http.Handler {
	docs := dynstore.New(client, dynstore.TableConfig{
		TableName:    "MedAssureAI_Artifacts",
		PartitionKey: "PK",
		SortKey:      "SK",
	})
	return DynamoRoutes(docs, artifacts.New(docs), testLogger(), nil)
}

func TestPutItemEndpoint(t *testing.T) {
	client := &dynstore.MockClient{}
	router := newDynamoRouter(client)

	rec := doJSON(t, router, http.MethodPost, "/tools/put_item", map[string]any{
		"item": map[string]any{"PK": "PROJECT#p-1", "SK": "METADATA", "name": "Infusion Pump"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var res dynstore.PutResult
	decodeBody(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "Infusion Pump", res.Item["name"])
	assert.Equal(t, 1, client.CallCount("PutItem"))
}

func TestGetItemMissingIs404(t *testing.T) {
	router := newDynamoRouter(&dynstore.MockClient{})

	rec := doJSON(t, router, http.MethodPost, "/tools/get_item", map[string]any{
		"key": map[string]any{"PK": "PROJECT#p-1", "SK": "METADATA"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.False(t, body.Success)
	assert.Equal(t, "not_found", body.ErrorKind)
}

func TestQueryRequiresKeyCondition(t *testing.T) {
	client := &dynstore.MockClient{}
	router := newDynamoRouter(client)

	rec := doJSON(t, router, http.MethodPost, "/tools/query", map[string]any{
		"expression_attribute_values": map[string]any{":pk": "PROJECT#p-1"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "validation", body.ErrorKind)
	assert.Contains(t, body.Error, "key_condition_expression")
	assert.Zero(t, client.CallCount("Query"))
}

func TestSaveProjectEndpoint(t *testing.T) {
	var written int
	client := &dynstore.MockClient{
		BatchWriteItemFn: func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			written += len(params.RequestItems["MedAssureAI_Artifacts"])
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	router := newDynamoRouter(client)

	rec := doJSON(t, router, http.MethodPost, "/artifacts/projects", map[string]any{
		"id":   "p-1",
		"name": "Infusion Pump",
		"epics": []map[string]any{{
			"id":    "E1",
			"title": "Alarm handling",
			"features": []map[string]any{{
				"id":    "F1",
				"title": "Occlusion alarm",
				"use_cases": []map[string]any{{
					"id":    "UC1",
					"title": "Alarm on occlusion",
					"test_cases": []map[string]any{
						{"id": "TC1", "title": "Alarm within 5 seconds", "priority": "critical"},
						{"id": "TC2", "title": "Alarm is audible"},
					},
				}},
			}},
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var res summaryResponse
	decodeBody(t, rec, &res)
	assert.True(t, res.Success)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "p-1", res.Summary.ProjectID)
	assert.Equal(t, 1, res.Summary.Epics)
	assert.Equal(t, 1, res.Summary.Features)
	assert.Equal(t, 1, res.Summary.UseCases)
	assert.Equal(t, 2, res.Summary.TestCases)
	assert.Equal(t, 6, written, "metadata rollup plus one item per artifact")
}

func TestSaveProjectRejectsInvalidTrees(t *testing.T) {
	client := &dynstore.MockClient{}
	router := newDynamoRouter(client)

	rec := doJSON(t, router, http.MethodPost, "/artifacts/projects", map[string]any{
		"id": "p-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "validation", body.ErrorKind)
	assert.Contains(t, body.Error, "name")
	assert.Zero(t, client.CallCount("BatchWriteItem"))
}

func TestLoadProjectMissingIs404(t *testing.T) {
	router := newDynamoRouter(&dynstore.MockClient{})

	rec := doJSON(t, router, http.MethodGet, "/artifacts/projects/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "not_found", body.ErrorKind)
	assert.Contains(t, body.Error, "project not found")
}

func TestSetTicketRefUsesPathProject(t *testing.T) {
	existing, err := attributevalue.MarshalMap(map[string]any{
		"PK": "PROJECT#p-9", "SK": "EPIC#E1", "entity_type": "epic",
	})
	require.NoError(t, err)

	var update *dynamodb.UpdateItemInput
	client := &dynstore.MockClient{
		GetItemFn: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: existing}, nil
		},
		UpdateItemFn: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			update = params
			return &dynamodb.UpdateItemOutput{}, nil
		},
	}
	router := newDynamoRouter(client)

	// No project_id in the body: the path segment must win.
	rec := doJSON(t, router, http.MethodPatch, "/artifacts/projects/p-9/ticket-ref", map[string]any{
		"epic_id":   "E1",
		"issue_key": "MED-77",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body envelopeBody
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)

	require.NotNil(t, update)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "PROJECT#p-9"}, update.Key["PK"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "EPIC#E1"}, update.Key["SK"])
	var values []types.AttributeValue
	for _, v := range update.ExpressionAttributeValues {
		values = append(values, v)
	}
	assert.Contains(t, values, &types.AttributeValueMemberS{Value: "MED-77"})
}
