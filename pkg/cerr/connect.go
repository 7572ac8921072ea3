package cerr

import (
	"context"

	"connectrpc.com/connect"
)

// NewConvertConnectErrorInterceptor rewrites errors returned by unary handlers
// into connect errors carrying the cerr code, message and violations.
func NewConvertConnectErrorInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				err = ExtractConnectError(ctx, err)
			}
			return resp, err
		}
	}
}
