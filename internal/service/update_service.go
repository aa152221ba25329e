package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/dispatch"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/failure"
	"github.com/dreamware/terrastore/internal/node"
)

// UpdateService is the mutating half of the ingress contract: PUT, DELETE,
// and POST .../update map onto it (spec §6).
type UpdateService interface {
	// PutValue stores value under (bucket, key), creating bucket if it
	// does not yet exist. An empty predicate skips the condition check.
	PutValue(ctx context.Context, bucket, key string, value []byte, predicate string) error

	// RemoveValue deletes (bucket, key). Not an error if the key is
	// already absent.
	RemoveValue(ctx context.Context, bucket, key string) error

	// UpdateValue runs the named update function against the current
	// value at (bucket, key) and stores what it returns, bounded by
	// timeout (spec §4.5: "Update carries its own end-to-end timeout").
	UpdateValue(ctx context.Context, bucket, key, function string, params json.RawMessage, timeout time.Duration) ([]byte, error)

	// RemoveBucket drops bucket across the whole ensemble. Per spec §4.5,
	// the command targets one node per cluster; a cluster with no members
	// surfaces as MissingRoute, and the caller must treat the operation as
	// non-idempotent after a partial failure (spec §7).
	RemoveBucket(ctx context.Context, bucket string) error
}

// DefaultUpdateService is the later of the two forms the teacher carried
// (spec §9's resolved ambiguity): condition resolution happens inside
// internal/command's Dispatch, driven by the Predicate named in the
// payload, rather than by a service-level Condition map keyed per
// service. This type is therefore a thin router-then-send layer with no
// condition bookkeeping of its own.
type DefaultUpdateService struct {
	Router      Router
	Retry       failure.RetryConfig
	Concurrency int
}

func (s DefaultUpdateService) PutValue(ctx context.Context, bucket, key string, value []byte, predicate string) error {
	payload, err := json.Marshal(command.PutValuePayload{Bucket: bucket, Key: key, Value: value, Predicate: predicate})
	if err != nil {
		return errs.NewValidation("failed to encode put payload: %v", err)
	}
	cmd := command.Command{Kind: command.PutValue, Version: command.CurrentVersion, Payload: payload}

	return failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
		n, err := s.Router.RouteToNodeForKey(bucket, key)
		if err != nil {
			return err
		}
		_, err = n.Send(ctx, cmd)
		return err
	})
}

func (s DefaultUpdateService) RemoveValue(ctx context.Context, bucket, key string) error {
	payload, err := json.Marshal(command.RemoveValuePayload{Bucket: bucket, Key: key})
	if err != nil {
		return errs.NewValidation("failed to encode remove payload: %v", err)
	}
	cmd := command.Command{Kind: command.RemoveValue, Version: command.CurrentVersion, Payload: payload}

	return failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
		n, err := s.Router.RouteToNodeForKey(bucket, key)
		if err != nil {
			return err
		}
		_, err = n.Send(ctx, cmd)
		return err
	})
}

func (s DefaultUpdateService) UpdateValue(ctx context.Context, bucket, key, function string, params json.RawMessage, timeout time.Duration) ([]byte, error) {
	payload, err := json.Marshal(command.UpdatePayload{
		Bucket:        bucket,
		Key:           key,
		Function:      function,
		Params:        params,
		TimeoutMillis: timeout.Milliseconds(),
	})
	if err != nil {
		return nil, errs.NewValidation("failed to encode update payload: %v", err)
	}
	cmd := command.Command{Kind: command.Update, Version: command.CurrentVersion, Payload: payload}

	var result command.UpdateResult
	err = failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
		n, err := s.Router.RouteToNodeForKey(bucket, key)
		if err != nil {
			return err
		}
		raw, err := n.Send(ctx, cmd)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &result)
	})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

func (s DefaultUpdateService) RemoveBucket(ctx context.Context, bucket string) error {
	payload, err := json.Marshal(command.RemoveBucketPayload{Bucket: bucket})
	if err != nil {
		return errs.NewValidation("failed to encode remove-bucket payload: %v", err)
	}
	cmd := command.Command{Kind: command.RemoveBucket, Version: command.CurrentVersion, Payload: payload}

	byCluster := s.Router.BroadcastRoute()
	if len(byCluster) == 0 {
		return errs.NewMissingRoute("no clusters configured, cannot remove bucket %q", bucket)
	}

	targets := make([]node.Node, 0, len(byCluster))
	for clusterName, nodes := range byCluster {
		if len(nodes) == 0 {
			return errs.NewMissingRoute("cluster %q has no members, bucket %q not removed on any cluster", clusterName, bucket)
		}
		targets = append(targets, nodes[0])
	}

	collector := dispatch.NewUnionCollector[string, struct{}]()
	_, err = dispatch.Dispatch(ctx, targets, s.Concurrency, func(ctx context.Context, n node.Node) (map[string]struct{}, error) {
		sendErr := failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
			_, err := n.Send(ctx, cmd)
			return err
		})
		if sendErr != nil {
			return nil, sendErr
		}
		return map[string]struct{}{n.ID(): {}}, nil
	}, collector)
	return err
}
