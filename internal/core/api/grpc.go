package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/rulekeeper/internal/rules"
	"github.com/solatis/rulekeeper/internal/types"
)

/*
 * gRPC surface.
 *
 * Messages are protobuf well-known types carrying the same JSON shapes as the
 * REST API, so no generated code is needed:
 *
 *   ListRules(Empty)          -> Struct {"rules": [Rule...]}
 *   GetRule(StringValue id)   -> Struct Rule
 *   CreateRule(Struct Rule)   -> Struct Rule
 *   DeleteRule(StringValue)   -> Struct {"deleted": Rule|null}
 *   UpdateRule(Struct {"id": string, "rule": Rule}) -> Struct Rule
 *   Evaluate(Struct {"rules": [string...], "document": any}) -> Struct Evaluation
 *
 * Struct numbers are float64, so integers above 2^53 lose precision on this
 * transport.
 */

// RuleServiceName is the fully-qualified gRPC service name.
const RuleServiceName = "rulekeeper.v1.RuleService"

// RuleServiceServer is the server API for RuleService.
type RuleServiceServer interface {
	ListRules(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRule(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CreateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRule(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	UpdateRule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RuleServiceDesc describes RuleService for grpc.Server.RegisterService.
var RuleServiceDesc = grpc.ServiceDesc{
	ServiceName: RuleServiceName,
	HandlerType: (*RuleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary[emptypb.Empty]("ListRules", RuleServiceServer.ListRules),
		unary[wrapperspb.StringValue]("GetRule", RuleServiceServer.GetRule),
		unary[structpb.Struct]("CreateRule", RuleServiceServer.CreateRule),
		unary[wrapperspb.StringValue]("DeleteRule", RuleServiceServer.DeleteRule),
		unary[structpb.Struct]("UpdateRule", RuleServiceServer.UpdateRule),
		unary[structpb.Struct]("Evaluate", RuleServiceServer.Evaluate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulekeeper/v1/rules.proto",
}

// RegisterRuleServiceServer registers srv on s.
func RegisterRuleServiceServer(s grpc.ServiceRegistrar, srv RuleServiceServer) {
	s.RegisterService(&RuleServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + RuleServiceName + "/" + name
}

func unary[T any, PT interface {
	*T
	proto.Message
}](name string, call func(RuleServiceServer, context.Context, PT) (*structpb.Struct, error)) grpc.MethodDesc {
	method := fullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PT(new(T))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RuleServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(RuleServiceServer), ctx, req.(PT))
			})
		},
	}
}

// GRPCService implements RuleServiceServer over a Service.
type GRPCService struct {
	svc *Service
}

// NewGRPCService builds the gRPC adapter for svc.
func NewGRPCService(svc *Service) *GRPCService {
	return &GRPCService{svc: svc}
}

func (g *GRPCService) ListRules(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := g.svc.ListRules(ctx)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(map[string]any{"rules": out})
}

func (g *GRPCService) GetRule(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	out, err := g.svc.GetRule(ctx, in.GetValue())
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(out)
}

func (g *GRPCService) CreateRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var rule rules.Rule
	if err := fromStruct(in, &rule); err != nil {
		return nil, GRPCStatus(badRequest(fmt.Errorf("invalid rule: %w", err)))
	}
	if err := g.svc.CreateRule(ctx, rule); err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(rule)
}

func (g *GRPCService) DeleteRule(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	removed, err := g.svc.DeleteRule(ctx, in.GetValue())
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(DeleteResponse{Deleted: removed})
}

// UpdateRequest is the JSON shape of an UpdateRule request. Both keys are
// required.
type UpdateRequest struct {
	ID   *types.RuleName `json:"id"`
	Rule *rules.Rule     `json:"rule"`
}

func (g *GRPCService) UpdateRule(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req UpdateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, GRPCStatus(badRequest(fmt.Errorf("invalid update request: %w", err)))
	}
	if req.ID == nil || req.Rule == nil {
		return nil, GRPCStatus(badRequest(fmt.Errorf("invalid update request: id and rule are required")))
	}
	if _, err := g.svc.UpdateRule(ctx, *req.ID, *req.Rule); err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(req.Rule)
}

// EvaluateRequest is the JSON shape of an Evaluate request.
type EvaluateRequest struct {
	Rules    []types.RuleName `json:"rules"`
	Document json.RawMessage  `json:"document"`
}

func (g *GRPCService) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, GRPCStatus(badRequest(fmt.Errorf("invalid evaluate request: %w", err)))
	}
	if req.Rules == nil {
		req.Rules = []types.RuleName{}
	}

	var doc types.Document
	if len(req.Document) > 0 {
		decoded, err := types.DecodeDocument(req.Document)
		if err != nil {
			return nil, GRPCStatus(badRequest(err))
		}
		doc = decoded
	}

	out, err := g.svc.Evaluate(ctx, req.Rules, doc)
	if err != nil {
		return nil, GRPCStatus(err)
	}
	return toStruct(out)
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// fromStruct decodes a Struct into v through its JSON encoding, rejecting
// unknown fields.
func fromStruct(in *structpb.Struct, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	return dec.Decode(v)
}

// UnaryRequestID attaches the x-request-id metadata value (or a new id) to
// the handler context and returns it in the response header.
func UnaryRequestID() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var supplied string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDHeader); len(vals) > 0 {
				supplied = vals[0]
			}
		}
		id := requestIDOrNew(supplied)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, string(id)))
		return handler(WithRequestID(ctx, id), req)
	}
}

// UnaryLogging logs every call with its status code and latency.
func UnaryLogging(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		if id, ok := RequestIDFrom(ctx); ok {
			fields = append(fields, zap.String("request_id", string(id)))
		}

		if code == codes.Internal || code == codes.Unknown {
			logger.Error("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Info("rpc processed", fields...)
		}
		return resp, err
	}
}

// UnaryRecovery turns a handler panic into codes.Internal.
func UnaryRecovery(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic while handling rpc",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// UnaryTimeout bounds every call by d unless the client set a shorter deadline.
func UnaryTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

var _ RuleServiceServer = (*GRPCService)(nil)
