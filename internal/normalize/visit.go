package normalize

import (
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"

	"github.com/google/uuid"
)

// Visit field defaults, as the site tracker's dashboards expect them.
const (
	DefaultOriginURL     = "N/A"
	DefaultPage          = "Página inicial"
	DefaultTrafficSource = "direto"
	DefaultDevice        = "desktop"
	DefaultAction        = "visualizacao"
	unavailable          = "N/A"
)

// VisitOptions configures a VisitAssembler.
type VisitOptions struct {
	Paths            VisitPaths
	DefaultOriginURL string
	Now              func() time.Time
	NewID            func() string
}

// VisitAssembler builds canonical visits from site tracker payloads.
type VisitAssembler struct {
	opts VisitOptions
}

// NewVisitAssembler creates a VisitAssembler, filling unset options.
func NewVisitAssembler(opts VisitOptions) *VisitAssembler {
	if opts.Paths.ID == nil && opts.Paths.OriginURL == nil {
		opts.Paths = DefaultVisitPaths()
	}
	if opts.DefaultOriginURL == "" {
		opts.DefaultOriginURL = DefaultOriginURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &VisitAssembler{opts: opts}
}

// Paths returns the candidate paths in effect.
func (a *VisitAssembler) Paths() VisitPaths {
	return a.opts.Paths
}

// Assemble maps p onto a canonical visit. Every field has a default, so a
// visit is never rejected.
func (a *VisitAssembler) Assemble(p Payload) *domain.Visit {
	paths := a.opts.Paths
	now := a.opts.Now()

	v := &domain.Visit{
		ID:             stringOr(p, paths.ID, ""),
		OriginURL:      stringOr(p, paths.OriginURL, a.opts.DefaultOriginURL),
		IPAddress:      stringOr(p, paths.IPAddress, unavailable),
		UserAgent:      stringOr(p, paths.UserAgent, unavailable),
		PageVisited:    stringOr(p, paths.PageVisited, DefaultPage),
		TrafficSource:  stringOr(p, paths.TrafficSource, DefaultTrafficSource),
		Campaign:       optionalString(p, paths.Campaign),
		Medium:         optionalString(p, paths.Medium),
		Term:           optionalString(p, paths.Term),
		DeviceType:     stringOr(p, paths.DeviceType, DefaultDevice),
		Browser:        stringOr(p, paths.Browser, unavailable),
		Location:       stringOr(p, paths.Location, unavailable),
		ActionTaken:    stringOr(p, paths.ActionTaken, DefaultAction),
		VisitTimestamp: ISO(now),
		CreatedAt:      ISO(now),
	}
	if v.ID == "" {
		v.ID = a.opts.NewID()
	}
	if secs, ok := p.FirstInt(paths.DwellTime...); ok {
		v.DwellTimeSeconds = secs
	}
	if converted, ok := p.FirstBool(paths.Converted...); ok {
		v.Converted = converted
	}
	if ts, ok := p.FirstTime(paths.VisitTimestamp...); ok {
		v.VisitTimestamp = ISO(ts)
	}
	return v
}

func stringOr(p Payload, paths []string, fallback string) string {
	if s, ok := p.FirstString(paths...); ok {
		return s
	}
	return fallback
}

func optionalString(p Payload, paths []string) *string {
	if s, ok := p.FirstString(paths...); ok {
		return &s
	}
	return nil
}
