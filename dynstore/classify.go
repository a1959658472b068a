// dynstore/classify.go
package dynstore

import (
	"context"
	"errors"
	"net"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medassureai/artifact-gateway/gateway"
)

// classify sorts a raw DynamoDB failure into the gateway taxonomy.
//
// Retryable: throttling, request-limit and internal-server errors, plus
// HTTP 429/5xx responses and network timeouts. Everything else is terminal:
// conditional check failures surface as conflicts, missing tables as
// not-found, and cancelled contexts stop the attempt loop outright.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return gateway.Permanent(gateway.KindPermanent, err)
	}

	var (
		condFailed *types.ConditionalCheckFailedException
		notFound   *types.ResourceNotFoundException
		throttled  *types.ProvisionedThroughputExceededException
		reqLimit   *types.RequestLimitExceeded
		internal   *types.InternalServerError
		limits     *types.LimitExceededException
	)
	switch {
	case errors.As(err, &condFailed):
		return gateway.Permanent(gateway.KindConflict, err)
	case errors.As(err, &notFound):
		return gateway.Permanent(gateway.KindNotFound, err)
	case errors.As(err, &throttled), errors.As(err, &reqLimit),
		errors.As(err, &internal), errors.As(err, &limits):
		return gateway.Transient(err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if code := respErr.HTTPStatusCode(); code == 429 || code >= 500 {
			return gateway.Transient(err)
		}
		return gateway.Permanent(gateway.KindPermanent, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return gateway.Transient(err)
	}

	return gateway.Permanent(gateway.KindPermanent, err)
}
