package ingest

import (
	"context"
	"errors"
	"net"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/medassureai/artifact-gateway/gateway"
)

// classify sorts raw S3/Textract/SQS failures into the gateway taxonomy:
// HTTP 429/5xx responses and network timeouts are retryable, everything else
// is terminal. Document-store failures are classified inside dynstore.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return gateway.Permanent(gateway.KindPermanent, err)
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
