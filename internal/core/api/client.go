package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/store"
	"github.com/solatis/rulekeeper/internal/types"
)

// RuleServiceClient is the client API for RuleService.
type RuleServiceClient interface {
	ListRules(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetRule(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	CreateRule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteRule(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateRule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ruleServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRuleServiceClient wraps cc.
func NewRuleServiceClient(cc grpc.ClientConnInterface) RuleServiceClient {
	return &ruleServiceClient{cc: cc}
}

func (c *ruleServiceClient) invoke(ctx context.Context, name string, in any, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ruleServiceClient) ListRules(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRules", in, opts)
}

func (c *ruleServiceClient) GetRule(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRule", in, opts)
}

func (c *ruleServiceClient) CreateRule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateRule", in, opts)
}

func (c *ruleServiceClient) DeleteRule(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteRule", in, opts)
}

func (c *ruleServiceClient) UpdateRule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "UpdateRule", in, opts)
}

func (c *ruleServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Evaluate", in, opts)
}

// Client is a typed wrapper over RuleServiceClient. Errors are gRPC status
// errors as returned by the server.
type Client struct {
	rpc RuleServiceClient
}

// NewClient builds a typed client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: NewRuleServiceClient(cc)}
}

// ListRules returns every rule sorted by name.
func (c *Client) ListRules(ctx context.Context) ([]rules.Rule, error) {
	out, err := c.rpc.ListRules(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Rules []rules.Rule `json:"rules"`
	}
	if err := decodeStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

func (c *Client) GetRule(ctx context.Context, id types.RuleName) (rules.Rule, error) {
	out, err := c.rpc.GetRule(ctx, wrapperspb.String(id))
	if err != nil {
		return rules.Rule{}, err
	}
	var rule rules.Rule
	err = decodeStruct(out, &rule)
	return rule, err
}

func (c *Client) CreateRule(ctx context.Context, rule rules.Rule) error {
	in, err := encodeStruct(rule)
	if err != nil {
		return err
	}
	_, err = c.rpc.CreateRule(ctx, in)
	return err
}

// DeleteRule returns the removed rule, or nil when id was absent.
func (c *Client) DeleteRule(ctx context.Context, id types.RuleName) (*rules.Rule, error) {
	out, err := c.rpc.DeleteRule(ctx, wrapperspb.String(id))
	if err != nil {
		return nil, err
	}
	var resp DeleteResponse
	if err := decodeStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Deleted, nil
}

func (c *Client) UpdateRule(ctx context.Context, id types.RuleName, rule rules.Rule) error {
	in, err := encodeStruct(UpdateRequest{ID: &id, Rule: &rule})
	if err != nil {
		return err
	}
	_, err = c.rpc.UpdateRule(ctx, in)
	return err
}

// Evaluate runs ids against the JSON document doc.
func (c *Client) Evaluate(ctx context.Context, ids []types.RuleName, doc json.RawMessage) (store.Evaluation, error) {
	in, err := encodeStruct(EvaluateRequest{Rules: ids, Document: doc})
	if err != nil {
		return store.Evaluation{}, err
	}
	out, err := c.rpc.Evaluate(ctx, in)
	if err != nil {
		return store.Evaluation{}, err
	}
	var eval store.Evaluation
	err = decodeStruct(out, &eval)
	return eval, err
}

func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return out, nil
}

func decodeStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
