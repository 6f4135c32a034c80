package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"quantcal/internal/calendar"
)

// CalendarServiceName is the gRPC service name. Requests and responses are
// google.protobuf.Struct messages carrying the same fields as the HTTP API,
// with the market under "market".
const CalendarServiceName = "quantcal.v1.Calendar"

// CalendarServer is the server side of the calendar gRPC service.
type CalendarServer interface {
	Calendars(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IsTrading(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IsTradingDay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Session(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OpenClose(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BarTime(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BarTimes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Grid(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ CalendarServer = (*CalendarService)(nil)

// CalendarService implements CalendarServer over the loaded calendars.
type CalendarService struct {
	q *Querier
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(set *calendar.Set) *CalendarService {
	return &CalendarService{q: NewQuerier(set)}
}

// Register adds the service to a gRPC server.
func (s *CalendarService) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&calendarServiceDesc, s)
}

func (s *CalendarService) Calendars(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.q.Calendars())
}

func (s *CalendarService) IsTrading(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.Trading)
}

func (s *CalendarService) IsTradingDay(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.TradingDay)
}

func (s *CalendarService) Session(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.Session)
}

func (s *CalendarService) OpenClose(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.OpenClose)
}

func (s *CalendarService) BarTime(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.BarTime)
}

func (s *CalendarService) BarTimes(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.BarTimes)
}

func (s *CalendarService) Grid(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return call(req, s.q.Grid)
}

func call[T any](req *structpb.Struct, fn func(market string, p Params) (T, error)) (*structpb.Struct, error) {
	p := structParams{req}
	resp, err := fn(p.Get("market"), p)
	if err != nil {
		return nil, status.Error(codeOf(err), err.Error())
	}
	return toStruct(resp)
}

// toStruct converts a response through its JSON form so both transports
// share field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, errUnknownMarket):
		return codes.NotFound
	case errors.Is(err, calendar.ErrOutOfCalendar):
		return codes.OutOfRange
	case errors.Is(err, errBadRequest),
		errors.Is(err, calendar.ErrTooManyBars),
		errors.Is(err, calendar.ErrUnsupportedInterval),
		errors.Is(err, calendar.ErrInvalidInterval):
		return codes.InvalidArgument
	}
	return codes.Internal
}

// structParams reads request parameters from a Struct. Numbers are
// formatted without a fraction when they have none.
type structParams struct {
	s *structpb.Struct
}

func (p structParams) Get(key string) string {
	if p.s == nil {
		return ""
	}
	v, ok := p.s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Service descriptor
// ---------------------------------------------------------------------------

func unary(name string, fn func(CalendarServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + CalendarServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(CalendarServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(CalendarServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var calendarServiceDesc = grpc.ServiceDesc{
	ServiceName: CalendarServiceName,
	HandlerType: (*CalendarServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Calendars", CalendarServer.Calendars),
		unary("IsTrading", CalendarServer.IsTrading),
		unary("IsTradingDay", CalendarServer.IsTradingDay),
		unary("Session", CalendarServer.Session),
		unary("OpenClose", CalendarServer.OpenClose),
		unary("BarTime", CalendarServer.BarTime),
		unary("BarTimes", CalendarServer.BarTimes),
		unary("Grid", CalendarServer.Grid),
	},
	Metadata: "quantcal/v1/calendar.proto",
}

// logUnary logs every call at debug level and failures at warn.
func logUnary(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil && status.Code(err) == codes.Internal {
			log.Warn("grpc call failed", "method", info.FullMethod, "error", err)
		} else {
			log.Debug("grpc call", "method", info.FullMethod, "code", status.Code(err), "elapsed", time.Since(start))
		}
		return resp, err
	}
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// CalendarClient calls the calendar gRPC service.
type CalendarClient struct {
	cc grpc.ClientConnInterface
}

// NewCalendarClient wraps a client connection.
func NewCalendarClient(cc grpc.ClientConnInterface) *CalendarClient {
	return &CalendarClient{cc: cc}
}

// Call invokes method with string parameters and returns the response
// fields.
func (c *CalendarClient) Call(ctx context.Context, method string, params map[string]string) (*structpb.Struct, error) {
	fields := make(map[string]any, len(params))
	for k, v := range params {
		fields[k] = v
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CalendarServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode calls method and decodes the response into v, which should be one
// of the quantcal response types.
func (c *CalendarClient) Decode(ctx context.Context, method string, params map[string]string, v any) error {
	out, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	b, err := out.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return json.Unmarshal(b, v)
}
