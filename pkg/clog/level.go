package clog

import (
	"log/slog"

	"connectrpc.com/connect"
)

// HTTPStatusLevel is the level a finished request is logged at.
func HTTPStatusLevel(status int) slog.Level {
	switch {
	case status == 499: // client closed the request
		return slog.LevelInfo
	case status >= 500, status < 100:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// serverFaults are the codes that point at this process or its dependencies
// rather than at the caller.
var serverFaults = map[connect.Code]bool{
	connect.CodeUnknown:           true,
	connect.CodeResourceExhausted: true,
	connect.CodeUnimplemented:     true,
	connect.CodeInternal:          true,
	connect.CodeUnavailable:       true,
	connect.CodeDataLoss:          true,
}

// ConnectCodeLevel logs server faults as errors and everything else as info.
func ConnectCodeLevel(code connect.Code) slog.Level {
	if serverFaults[code] {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// IsServerFault reports whether code is logged at error level.
func IsServerFault(code connect.Code) bool {
	return serverFaults[code]
}
