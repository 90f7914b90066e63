package http

import (
	"github.com/go-trade-client/internal/application/capture"
	"github.com/go-trade-client/internal/application/funding"
	"github.com/go-trade-client/internal/application/kyc"
	"github.com/go-trade-client/internal/application/notification"
	"github.com/go-trade-client/internal/application/push"
	"github.com/go-trade-client/internal/transport/http/handler"
	appmiddleware "github.com/go-trade-client/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds the services and infrastructure the router serves.
type Deps struct {
	Verifier      appmiddleware.TokenVerifier
	KYC           kyc.Service
	Capture       capture.Strategy
	Notifications notification.Service
	Push          *push.Manager
	Funding       funding.Service
	Hub           handler.Subscriber
	// Ready backs /health-check/ready; nil means always ready.
	Ready func() bool
	Log   *zap.Logger
}
