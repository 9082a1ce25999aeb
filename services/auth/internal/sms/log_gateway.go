package sms

import (
	"context"
	"fmt"

	"github.com/diagnosis/verifywoo/pkg/logger"
)

const LogDriverName = "log"

// LogGateway prints messages instead of sending them. Development only.
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) Name() string { return LogDriverName }

func (g *LogGateway) Send(ctx context.Context, to, message string, opts SendOptions) bool {
	logger.InfoContext(ctx, "[DEV SMS] Message", "to", to, "message", message, "local_id", opts.LocalID)
	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📱 SMS (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s\n"+
		"\n"+
		"%s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		to, message)
	return true
}

func (g *LogGateway) SendByPattern(ctx context.Context, to, pattern string, data PatternData, opts SendOptions) bool {
	logger.InfoContext(ctx, "[DEV SMS] Pattern message", "to", to, "pattern", pattern, "data", map[string]string(data))
	fmt.Printf("\n📱 SMS pattern %q to %s: %v\n\n", pattern, to, map[string]string(data))
	return true
}
