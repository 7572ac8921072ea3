package clog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
)

// NewSlogConnectInterceptor logs one line per unary call with its procedure,
// peer, result code and duration. Streaming calls pass through.
func NewSlogConnectInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			ctx = ContextWithSlog(ctx)
			AddAttributes(ctx, map[string]any{
				"procedure": req.Spec().Procedure,
				"protocol":  req.Peer().Protocol,
				"peer":      req.Peer().Addr,
			})

			resp, err := next(ctx, req)

			code, level, msg := "ok", slog.LevelInfo, "Finished"
			if err != nil {
				var cerr *connect.Error
				if !errors.As(err, &cerr) {
					cerr = connect.NewError(connect.CodeUnknown, err)
				}
				code, level, msg = cerr.Code().String(), ConnectCodeLevel(cerr.Code()), cerr.Message()
				if details := errorDetails(ctx, cerr); len(details) > 0 {
					AddAttribute(ctx, "err_details", details)
				}
			}
			AddAttributes(ctx, map[string]any{
				"code":     code,
				"duration": time.Since(start),
			})
			slog.Log(ctx, level, msg)
			return resp, err
		}
	}
}

func errorDetails(ctx context.Context, cerr *connect.Error) []proto.Message {
	var details []proto.Message
	for _, d := range cerr.Details() {
		v, err := d.Value()
		if err != nil {
			slog.WarnContext(ctx, "failed to decode error detail", "type", d.Type(), "error", err)
			continue
		}
		details = append(details, v)
	}
	return details
}
