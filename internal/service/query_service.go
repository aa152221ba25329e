package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dreamware/terrastore/internal/command"
	"github.com/dreamware/terrastore/internal/dispatch"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/failure"
	"github.com/dreamware/terrastore/internal/node"
	"github.com/dreamware/terrastore/internal/storage"
)

// QueryService is the read half of the ingress contract: GET maps onto it
// (spec §6).
type QueryService interface {
	// GetValue fetches (bucket, key), optionally filtered by a named
	// predicate. found is false both when the key is absent and when a
	// predicate rejects the stored value.
	GetValue(ctx context.Context, bucket, key, predicate string) ([]byte, bool, error)

	// QueryByRange returns the sorted keys of bucket in [start, end]
	// (inclusive both ends) under comparator, up to limit (0 = unlimited),
	// merged across every node of bucket's owning cluster (spec §4.7's
	// sorted-merge collector).
	QueryByRange(ctx context.Context, bucket, start, end, comparator string, ttl time.Duration, limit int) ([]string, error)

	// QueryByPredicate returns every (key, value) pair in bucket whose
	// value satisfies the named predicate, gathered across every node of
	// bucket's owning cluster.
	QueryByPredicate(ctx context.Context, bucket, predicate string) (map[string][]byte, error)

	// GetBuckets returns the union of bucket names known anywhere in the
	// ensemble.
	GetBuckets(ctx context.Context) ([]string, error)
}

// DefaultQueryService implements QueryService by routing and, where a
// query spans more than one node, fanning out through internal/dispatch.
type DefaultQueryService struct {
	Router      Router
	Retry       failure.RetryConfig
	Concurrency int
}

func (s DefaultQueryService) GetValue(ctx context.Context, bucket, key, predicate string) ([]byte, bool, error) {
	payload, err := json.Marshal(command.GetValuePayload{Bucket: bucket, Key: key, Predicate: predicate})
	if err != nil {
		return nil, false, errs.NewValidation("failed to encode get payload: %v", err)
	}
	cmd := command.Command{Kind: command.GetValue, Version: command.CurrentVersion, Payload: payload}

	var result command.GetValueResult
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
		return nil, false, err
	}
	return result.Value, result.Found, nil
}

func (s DefaultQueryService) QueryByRange(ctx context.Context, bucket, start, end, comparator string, ttl time.Duration, limit int) ([]string, error) {
	if comparator == "" {
		comparator = storage.ComparatorLexicographic
	}
	nodes, err := s.clusterMembers(bucket)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(command.KeysInRangePayload{
		Bucket:     bucket,
		Start:      start,
		End:        end,
		Comparator: comparator,
		TTLMillis:  ttl.Milliseconds(),
		Limit:      limit,
	})
	if err != nil {
		return nil, errs.NewValidation("failed to encode range payload: %v", err)
	}
	cmd := command.Command{Kind: command.KeysInRange, Version: command.CurrentVersion, Payload: payload}

	less := storage.ComparatorLess(comparator)
	collector := dispatch.NewSortedMergeCollector(less)
	merged, err := dispatch.Dispatch(ctx, nodes, s.Concurrency, func(ctx context.Context, n node.Node) ([]string, error) {
		var result command.KeysInRangeResult
		sendErr := failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
			raw, err := n.Send(ctx, cmd)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &result)
		})
		if sendErr != nil {
			return nil, sendErr
		}
		return result.Keys, nil
	}, collector)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s DefaultQueryService) QueryByPredicate(ctx context.Context, bucket, predicate string) (map[string][]byte, error) {
	nodes, err := s.clusterMembers(bucket)
	if err != nil {
		return nil, err
	}

	keysPayload, err := json.Marshal(command.GetKeysPayload{Bucket: bucket})
	if err != nil {
		return nil, errs.NewValidation("failed to encode keys payload: %v", err)
	}
	keysCmd := command.Command{Kind: command.GetKeys, Version: command.CurrentVersion, Payload: keysPayload}

	collector := dispatch.NewUnionCollector[string, []byte]()
	result, err := dispatch.Dispatch(ctx, nodes, s.Concurrency, func(ctx context.Context, n node.Node) (map[string][]byte, error) {
		var keysResult command.GetKeysResult
		sendErr := failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
			raw, err := n.Send(ctx, keysCmd)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &keysResult)
		})
		if sendErr != nil {
			return nil, sendErr
		}
		if len(keysResult.Keys) == 0 {
			return nil, nil
		}

		valuesPayload, err := json.Marshal(command.GetValuesPayload{Bucket: bucket, Keys: keysResult.Keys, Predicate: predicate})
		if err != nil {
			return nil, errs.NewValidation("failed to encode values payload: %v", err)
		}
		valuesCmd := command.Command{Kind: command.GetValues, Version: command.CurrentVersion, Payload: valuesPayload}

		var valuesResult command.GetValuesResult
		sendErr = failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
			raw, err := n.Send(ctx, valuesCmd)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &valuesResult)
		})
		if sendErr != nil {
			return nil, sendErr
		}
		return valuesResult.Values, nil
	}, collector)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s DefaultQueryService) GetBuckets(ctx context.Context) ([]string, error) {
	byCluster := s.Router.BroadcastRoute()
	var targets []node.Node
	for _, nodes := range byCluster {
		targets = append(targets, nodes...)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	cmd := command.Command{Kind: command.GetBuckets, Version: command.CurrentVersion}
	collector := dispatch.NewUnionCollector[string, struct{}]()
	merged, err := dispatch.Dispatch(ctx, targets, s.Concurrency, func(ctx context.Context, n node.Node) (map[string]struct{}, error) {
		var result command.GetBucketsResult
		sendErr := failure.Retry(ctx, s.Retry, func(ctx context.Context) error {
			raw, err := n.Send(ctx, cmd)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &result)
		})
		if sendErr != nil {
			return nil, sendErr
		}
		out := make(map[string]struct{}, len(result.Buckets))
		for _, name := range result.Buckets {
			out[name] = struct{}{}
		}
		return out, nil
	}, collector)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s DefaultQueryService) clusterMembers(bucket string) ([]node.Node, error) {
	clusterName, err := s.Router.ClusterFor(bucket)
	if err != nil {
		return nil, err
	}
	nodes, err := s.Router.ClusterRoute(clusterName)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errs.NewMissingRoute("cluster %q has no members", clusterName)
	}
	return nodes, nil
}
