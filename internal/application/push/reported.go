package push

import (
	"context"

	"github.com/go-trade-client/internal/domain"
)

// Report is what the page sends after doing the browser work itself.
type Report struct {
	Capabilities Capabilities             `json:"capabilities"`
	Permission   Permission               `json:"permission"`
	Existing     bool                     `json:"existing"`
	Subscription *domain.PushSubscription `json:"subscription"`
}

// ReportedPlatform replays a page report as a Platform.
type ReportedPlatform struct {
	Report Report
}

func (p ReportedPlatform) Capabilities() Capabilities { return p.Report.Capabilities }

func (p ReportedPlatform) RegisterWorker(context.Context, string, string) (Registration, error) {
	return reportedRegistration(p), nil
}

func (p ReportedPlatform) RequestPermission(context.Context) (Permission, error) {
	if p.Report.Permission == "" {
		return PermissionDefault, nil
	}
	return p.Report.Permission, nil
}

type reportedRegistration ReportedPlatform

func (r reportedRegistration) Subscription(context.Context) (*domain.PushSubscription, error) {
	if r.Report.Existing {
		return r.Report.Subscription, nil
	}
	return nil, nil
}

func (r reportedRegistration) Subscribe(context.Context, []byte) (*domain.PushSubscription, error) {
	if r.Report.Subscription == nil {
		return nil, domain.ErrNoSubscription
	}
	return r.Report.Subscription, nil
}
