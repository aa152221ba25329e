// Package command implements the command protocol (spec §4.5): a tagged
// kind plus a JSON payload, dispatched against a node's local storage
// engine by a single switch rather than by reflection (spec §9's redesign
// of the source's reflective dispatch), modeled after cmd/node/main.go's
// handleShardRequest path-routing switch generalized into an in-process
// Kind switch.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreamware/terrastore/internal/cluster"
	"github.com/dreamware/terrastore/internal/errs"
	"github.com/dreamware/terrastore/internal/storage"
)

// Kind tags a Command's payload shape. Values are part of the wire
// contract (spec §6) and must never be renumbered once shipped.
type Kind uint16

const (
	GetBuckets Kind = iota + 1
	GetKeys
	KeysInRange
	GetValue
	GetValues
	PutValue
	RemoveValue
	RemoveValues
	RemoveBucket
	Update
	Membership
)

func (k Kind) String() string {
	switch k {
	case GetBuckets:
		return "GetBuckets"
	case GetKeys:
		return "GetKeys"
	case KeysInRange:
		return "KeysInRange"
	case GetValue:
		return "GetValue"
	case GetValues:
		return "GetValues"
	case PutValue:
		return "PutValue"
	case RemoveValue:
		return "RemoveValue"
	case RemoveValues:
		return "RemoveValues"
	case RemoveBucket:
		return "RemoveBucket"
	case Update:
		return "Update"
	case Membership:
		return "Membership"
	default:
		return "Unknown"
	}
}

// CurrentVersion is the only payload encoding Dispatch understands today.
// Commands carry their own version (spec §6: "versioned self-describing
// codec") so a future encoding can be introduced without breaking nodes
// still running the old one.
const CurrentVersion uint16 = 1

// Command is the in-process envelope for a dispatched request; internal/wire
// decodes a frame into one of these before handing it to Dispatch.
type Command struct {
	Kind    Kind
	Version uint16
	Payload json.RawMessage
}

// Predicate evaluates whether a stored value satisfies a named condition
// (spec §4.5's "optional predicate" on GetValue/GetValues/RemoveValues).
type Predicate func(value []byte) bool

// PredicateRegistry resolves a predicate by the name a client supplied.
type PredicateRegistry interface {
	Predicate(name string) (Predicate, bool)
}

// UpdateFunction computes a new value from the current one (spec §4.5's
// Update command, "function-name, params"). A nil current value means the
// key did not previously exist.
type UpdateFunction func(current []byte, params json.RawMessage) ([]byte, error)

// FunctionRegistry resolves an update function by name.
type FunctionRegistry interface {
	Function(name string) (UpdateFunction, bool)
}

// BucketStore is the storage-engine collaborator Dispatch operates
// against: bucket lookup and lifecycle, local to one node. The storage
// engine itself is an external collaborator (spec §1); storage.Bucket is
// this repo's in-memory stand-in.
type BucketStore interface {
	Bucket(name string) (*storage.Bucket, bool)
	Buckets() []string
	CreateBucket(name string) *storage.Bucket
	DropBucket(name string) bool
}

// MembershipProvider answers the Membership command with this node's
// cluster's current member addresses.
type MembershipProvider interface {
	Members() []cluster.NodeAddress
}

// Deps bundles everything Dispatch needs to execute a command. Fields may
// be nil if the corresponding command kinds are never sent to this node
// (e.g. a node with no registered update functions).
type Deps struct {
	Buckets    BucketStore
	Predicates PredicateRegistry
	Functions  FunctionRegistry
	Membership MembershipProvider
}

func bucketOrProcessingError(deps Deps, name string) (*storage.Bucket, error) {
	b, ok := deps.Buckets.Bucket(name)
	if !ok {
		return nil, errs.NewProcessing(fmt.Sprintf("bucket %q not found", name), nil)
	}
	return b, nil
}

func resolvePredicate(deps Deps, name string) (Predicate, error) {
	if name == "" {
		return nil, nil
	}
	if deps.Predicates == nil {
		return nil, errs.NewValidation("no predicate registry configured, cannot resolve %q", name)
	}
	p, ok := deps.Predicates.Predicate(name)
	if !ok {
		return nil, errs.NewValidation("unknown predicate %q", name)
	}
	return p, nil
}

// Dispatch decodes cmd.Payload for cmd.Kind, executes it against deps, and
// returns a JSON-encoded result payload. Unknown kind or version fails
// with errs.Protocol (spec §4.5: "unknown kinds fail with a distinct
// protocol-mismatch error").
func Dispatch(ctx context.Context, deps Deps, cmd Command) (json.RawMessage, error) {
	if cmd.Version != CurrentVersion {
		return nil, errs.NewProtocol("unsupported command version %d (want %d)", cmd.Version, CurrentVersion)
	}

	switch cmd.Kind {
	case GetBuckets:
		return dispatchGetBuckets(deps)
	case GetKeys:
		return dispatchGetKeys(deps, cmd.Payload)
	case KeysInRange:
		return dispatchKeysInRange(deps, cmd.Payload)
	case GetValue:
		return dispatchGetValue(deps, cmd.Payload)
	case GetValues:
		return dispatchGetValues(deps, cmd.Payload)
	case PutValue:
		return dispatchPutValue(deps, cmd.Payload)
	case RemoveValue:
		return dispatchRemoveValue(deps, cmd.Payload)
	case RemoveValues:
		return dispatchRemoveValues(deps, cmd.Payload)
	case RemoveBucket:
		return dispatchRemoveBucket(deps, cmd.Payload)
	case Update:
		return dispatchUpdate(ctx, deps, cmd.Payload)
	case Membership:
		return dispatchMembership(deps)
	default:
		return nil, errs.NewProtocol("unknown command kind %d", cmd.Kind)
	}
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return errs.NewValidation("malformed payload: %v", err)
	}
	return nil
}

func encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errs.NewProcessing("failed to encode result", err)
	}
	return b, nil
}

// --- GetBuckets ---

// GetBucketsResult is the result of a GetBuckets command.
type GetBucketsResult struct {
	Buckets []string `json:"buckets"`
}

func dispatchGetBuckets(deps Deps) (json.RawMessage, error) {
	return encode(GetBucketsResult{Buckets: deps.Buckets.Buckets()})
}

// --- GetKeys ---

// GetKeysPayload is the payload of a GetKeys command.
type GetKeysPayload struct {
	Bucket string `json:"bucket"`
}

// GetKeysResult is the result of a GetKeys command.
type GetKeysResult struct {
	Keys []string `json:"keys"`
}

func dispatchGetKeys(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p GetKeysPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}
	return encode(GetKeysResult{Keys: b.ListKeys()})
}

// --- KeysInRange ---

// KeysInRangePayload is the payload of a KeysInRange command. TTLMillis
// governs how stale the bucket's cached sorted-keys snapshot may be
// before it is rebuilt (see internal/storage.Bucket), not per-key expiry.
type KeysInRangePayload struct {
	Bucket     string `json:"bucket"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Comparator string `json:"comparator"`
	TTLMillis  int64  `json:"ttlMillis"`
	Limit      int    `json:"limit"`
}

// KeysInRangeResult is the result of a KeysInRange command.
type KeysInRangeResult struct {
	Keys []string `json:"keys"`
}

func dispatchKeysInRange(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p KeysInRangePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(p.TTLMillis) * time.Millisecond
	comparator := p.Comparator
	if comparator == "" {
		comparator = storage.ComparatorLexicographic
	}
	keys := b.KeysInRange(p.Start, p.End, comparator, ttl, p.Limit)
	return encode(KeysInRangeResult{Keys: keys})
}

// --- GetValue ---

// GetValuePayload is the payload of a GetValue command.
type GetValuePayload struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Predicate string `json:"predicate,omitempty"`
}

// GetValueResult is the result of a GetValue command.
type GetValueResult struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

func dispatchGetValue(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p GetValuePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	pred, err := resolvePredicate(deps, p.Predicate)
	if err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}

	value, getErr := b.Get(p.Key)
	if getErr == storage.ErrKeyNotFound {
		return encode(GetValueResult{Found: false})
	}
	if getErr != nil {
		return nil, errs.NewProcessing("get failed", getErr)
	}
	if pred != nil && !pred(value) {
		return encode(GetValueResult{Found: false})
	}
	return encode(GetValueResult{Value: value, Found: true})
}

// --- GetValues ---

// GetValuesPayload is the payload of a GetValues command.
type GetValuesPayload struct {
	Bucket    string   `json:"bucket"`
	Keys      []string `json:"keys"`
	Predicate string   `json:"predicate,omitempty"`
}

// GetValuesResult is the result of a GetValues command.
type GetValuesResult struct {
	Values map[string][]byte `json:"values"`
}

func dispatchGetValues(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p GetValuesPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}
	pred, err := resolvePredicate(deps, p.Predicate)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(p.Keys))
	for _, k := range p.Keys {
		v, getErr := b.Get(k)
		if getErr != nil {
			continue
		}
		if pred != nil && !pred(v) {
			continue
		}
		out[k] = v
	}
	return encode(GetValuesResult{Values: out})
}

// --- PutValue ---

// PutValuePayload is the payload of a PutValue command.
type PutValuePayload struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	Predicate string `json:"predicate,omitempty"`
}

// Ack is the empty success result shared by commands that only confirm
// completion.
type Ack struct{}

func dispatchPutValue(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p PutValuePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, ok := deps.Buckets.Bucket(p.Bucket)
	if !ok {
		b = deps.Buckets.CreateBucket(p.Bucket)
	}

	if p.Predicate != "" {
		pred, err := resolvePredicate(deps, p.Predicate)
		if err != nil {
			return nil, err
		}
		current, getErr := b.Get(p.Key)
		exists := getErr == nil
		if !exists && getErr != storage.ErrKeyNotFound {
			return nil, errs.NewProcessing("get failed while checking predicate", getErr)
		}
		if exists && !pred(current) {
			return nil, errs.NewProcessing(fmt.Sprintf("predicate %q not satisfied for key %q", p.Predicate, p.Key), nil)
		}
	}

	if err := b.Put(p.Key, p.Value); err != nil {
		return nil, errs.NewProcessing("put failed", err)
	}
	return encode(Ack{})
}

// --- RemoveValue ---

// RemoveValuePayload is the payload of a RemoveValue command.
type RemoveValuePayload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func dispatchRemoveValue(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p RemoveValuePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}
	if err := b.Remove(p.Key); err != nil {
		return nil, errs.NewProcessing("remove failed", err)
	}
	return encode(Ack{})
}

// --- RemoveValues ---

// RemoveValuesPayload is the payload of a RemoveValues command.
type RemoveValuesPayload struct {
	Bucket    string   `json:"bucket"`
	Keys      []string `json:"keys"`
	Predicate string   `json:"predicate,omitempty"`
}

// RemoveValuesResult is the result of a RemoveValues command: the values
// that were actually removed, keyed by key (spec §4.5: "map of removed
// key → value").
type RemoveValuesResult struct {
	Removed map[string][]byte `json:"removed"`
}

func dispatchRemoveValues(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p RemoveValuesPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	b, err := bucketOrProcessingError(deps, p.Bucket)
	if err != nil {
		return nil, err
	}
	pred, err := resolvePredicate(deps, p.Predicate)
	if err != nil {
		return nil, err
	}

	removed := make(map[string][]byte)
	for _, k := range p.Keys {
		v, getErr := b.Get(k)
		if getErr != nil {
			continue
		}
		if pred != nil && !pred(v) {
			continue
		}
		if err := b.Remove(k); err != nil {
			continue
		}
		removed[k] = v
	}
	return encode(RemoveValuesResult{Removed: removed})
}

// --- RemoveBucket ---

// RemoveBucketPayload is the payload of a RemoveBucket command.
type RemoveBucketPayload struct {
	Bucket string `json:"bucket"`
}

func dispatchRemoveBucket(deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p RemoveBucketPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	deps.Buckets.DropBucket(p.Bucket)
	return encode(Ack{})
}

// --- Update ---

// UpdatePayload is the payload of an Update command.
type UpdatePayload struct {
	Bucket        string          `json:"bucket"`
	Key           string          `json:"key"`
	Function      string          `json:"function"`
	Params        json.RawMessage `json:"params,omitempty"`
	TimeoutMillis int64           `json:"timeoutMillis"`
}

// UpdateResult is the result of an Update command: the value it wrote.
type UpdateResult struct {
	Value []byte `json:"value"`
}

func dispatchUpdate(ctx context.Context, deps Deps, payload json.RawMessage) (json.RawMessage, error) {
	var p UpdatePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if deps.Functions == nil {
		return nil, errs.NewValidation("no function registry configured, cannot resolve %q", p.Function)
	}
	fn, ok := deps.Functions.Function(p.Function)
	if !ok {
		return nil, errs.NewValidation("unknown update function %q", p.Function)
	}

	b, ok := deps.Buckets.Bucket(p.Bucket)
	if !ok {
		b = deps.Buckets.CreateBucket(p.Bucket)
	}

	if p.TimeoutMillis > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.TimeoutMillis)*time.Millisecond)
		defer cancel()
	}

	current, getErr := b.Get(p.Key)
	if getErr != nil && getErr != storage.ErrKeyNotFound {
		return nil, errs.NewProcessing("get failed before update", getErr)
	}
	if getErr == storage.ErrKeyNotFound {
		current = nil
	}

	type outcome struct {
		value []byte
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(current, p.Params)
		done <- outcome{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errs.NewProcessing(fmt.Sprintf("update timed out for function %q", p.Function), nil)
	case o := <-done:
		if o.err != nil {
			return nil, errs.NewProcessing(fmt.Sprintf("update function %q failed", p.Function), o.err)
		}
		if err := b.Put(p.Key, o.value); err != nil {
			return nil, errs.NewProcessing("put failed after update", err)
		}
		b.CountUpdate()
		return encode(UpdateResult{Value: o.value})
	}
}

// --- Membership ---

// MembershipResult is the result of a Membership command.
type MembershipResult struct {
	Members []cluster.NodeAddress `json:"members"`
}

func dispatchMembership(deps Deps) (json.RawMessage, error) {
	if deps.Membership == nil {
		return encode(MembershipResult{Members: nil})
	}
	return encode(MembershipResult{Members: deps.Membership.Members()})
}
