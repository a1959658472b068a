// Package artifactgateway is the root of the MedAssureAI artifact gateway:
// the services and libraries that sit between the platform and its external
// stores, wrapping every call in validation, error classification and
// bounded retries.
//
// Overview:
// The platform turns regulatory documents into test artifacts (epics,
// features, use cases, test cases) for medical-device software. This module
// carries the resilient access layer for that work:
// 1. Persistence (dynstore, artifacts): document verbs and the artifact-tree
// layer over the single-table DynamoDB layout.
// 2. Tickets (jirastore): issue create/read/update/delete/search against
// Jira, with batch creation that reports partial progress.
// 3. State (sessions): Redis-backed analysis sessions with sliding TTLs.
// 4. Ingestion (ingest): document upload to S3, the Textract OCR stages and
// the human-review queue hand-off.
//
// Every store classifies failures through the gateway package, so callers
// and HTTP handlers can map outcomes uniformly: validation errors never
// retry, transient faults retry under a backoff budget, and responses share
// one envelope shape.
//
// Main sub-packages:
//
// 1. gateway:
//   - Error kinds, the retry loop and the response envelope.
//
// 2. dynstore:
//   - Put, get, update, delete, query, scan and batch over DynamoDB.
//   - Cursor-based paging and key validation before anything leaves the process.
//
// 3. envloader:
//   - Configuration via "env" and "envDefault" struct tags.
//   - Native and nested struct fields, with typed errors.
//
// Service binaries live under cmd/: jira-mcp, dynamodb-mcp and ingest-api
// expose the stores over HTTP; textract-trigger and textract-completion run
// the OCR stages as Lambda handlers. Shared plumbing (config, logging,
// metrics, transport, AWS clients, credentials) lives under pkg/.
//
// Quick start:
//
// Combining envloader and dynstore to initialize a document store.
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/medassureai/artifact-gateway/dynstore"
//		"github.com/medassureai/artifact-gateway/envloader"
//	)
//
//	func main() {
//		// 1. Table location from the environment
//		var cfg dynstore.TableConfig
//		if err := envloader.Load(&cfg); err != nil {
//			log.Fatalf("loading env: %v", err)
//		}
//
//		// 2. Initialize the store
//		// client := dynamodb.NewFromConfig(awsConfig) // real client
//		client := &dynstore.MockClient{} // mock keeps the example runnable
//		docs := dynstore.New(client, cfg)
//
//		// 3. Use it
//		res, err := docs.Get(context.Background(), dynstore.GetRequest{
//			Key: map[string]any{"PK": "PROJECT#p-100", "SK": "METADATA"},
//		})
//		if err != nil {
//			log.Fatalf("get: %v", err)
//		}
//		log.Printf("item: %v", res.Item)
//	}
package artifactgateway
