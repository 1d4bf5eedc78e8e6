// Package panel serves the behavior analytics page over HTTP.
package panel

import (
	"html/template"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/Lcking/throttle/internal/behavior"
	throttleotel "github.com/Lcking/throttle/internal/otel"
)

// Server renders behavior stats. RiskNotes thresholds mirror the panel's
// original tuning: ten hits a week is "frequent", eight continues is
// "passive".
type Server struct {
	events *behavior.Store
	target int // target reroute rate, percent
}

func NewServer(events *behavior.Store, targetRerouteRate int) *Server {
	return &Server{events: events, target: targetRerouteRate}
}

// Routes returns the chi router for the panel.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(throttleotel.Middleware())
	r.Get("/", s.handlePanel)
	r.Get("/healthz", s.handleHealthz)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.Events(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("loading behavior events")
		http.Error(w, "failed to load behavior events", http.StatusInternalServerError)
		return
	}
	stats := behavior.ComputeStats(events, timeNow())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := panelTemplate.Execute(w, buildView(stats, s.target)); err != nil {
		log.Error().Err(err).Msg("rendering behavior panel")
	}
}

type rateRow struct {
	Label   string
	Percent int
}

type countRow struct {
	Label string
	Last7 int
	Total int
}

type badgeRow struct {
	Label    string
	Unlocked bool
}

type panelView struct {
	TotalEvents   int
	TargetPercent int
	Rates         []rateRow
	Counts        []countRow
	Badges        []badgeRow
	Risks         []string
}

func percent(rate float64) int {
	return int(math.Round(rate * 100))
}

var badgeLabels = map[string]string{
	behavior.BadgeSteadyStart:      "Steady start",
	behavior.BadgePaceControl:      "Pace control",
	behavior.BadgeEfficientReroute: "Efficient reroute",
	behavior.BadgeCalmDriver:       "Calm driver",
}

var countLabels = map[behavior.EventType]string{
	behavior.EventHit:           "Nudges shown",
	behavior.EventLoad:          "Load hits",
	behavior.EventAuthority:     "Authority hits",
	behavior.EventNoise:         "Noise hits",
	behavior.EventContinue:      "Continued as-is",
	behavior.EventSwitchAsk:     "Switched to ask",
	behavior.EventSwitchLight:   "Switched to light",
	behavior.EventChangeMode:    "Changed mode",
	behavior.EventMuteRule:      "Muted a rule",
	behavior.EventGuardTemplate: "Copied checklist",
}

func buildView(stats behavior.Stats, target int) panelView {
	view := panelView{
		TotalEvents:   stats.TotalEvents,
		TargetPercent: target,
		Rates: []rateRow{
			{Label: "Reroute rate (7d)", Percent: percent(stats.Last7DaysRerouteRate)},
			{Label: "Reroute rate (all time)", Percent: percent(stats.TotalsRerouteRate)},
			{Label: "Governance share (7d)", Percent: percent(stats.GovernanceRate)},
			{Label: "Governance adoption (7d)", Percent: percent(stats.GovernanceAdoptionRate)},
		},
		Risks: riskNotes(stats, target),
	}
	for _, et := range behavior.EventTypes {
		view.Counts = append(view.Counts, countRow{
			Label: countLabels[et],
			Last7: stats.Last7Days[et],
			Total: stats.Totals[et],
		})
	}
	for _, badge := range stats.Badges {
		view.Badges = append(view.Badges, badgeRow{Label: badgeLabels[badge.ID], Unlocked: badge.Unlocked})
	}
	return view
}

// riskNotes flags the two behavior patterns worth a nudge of their own:
// frequent nudges with a reroute rate under target, and a run of plain
// continues.
func riskNotes(stats behavior.Stats, target int) []string {
	hits7d := stats.Last7Days[behavior.EventHit]
	var risks []string
	if hits7d >= 10 && percent(stats.Last7DaysRerouteRate) < target {
		risks = append(risks, "Nudges are frequent but the reroute rate is below target; tighten the task spec or try the light tier first.")
	}
	if stats.Last7Days[behavior.EventContinue] >= 8 && hits7d >= 10 {
		risks = append(risks, "Mostly continuing as-is; re-check task scope and engineering constraints.")
	}
	if len(risks) == 0 {
		risks = append(risks, "No notable risk signals.")
	}
	return risks
}

// timeNow is swapped in tests.
var timeNow = time.Now

var panelTemplate = template.Must(template.New("panel").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Throttle behavior</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 24px; color: #222; }
  h1 { font-size: 20px; }
  section { margin: 16px 0; padding: 12px 16px; border: 1px solid #ddd; border-radius: 6px; }
  table { border-collapse: collapse; }
  td, th { padding: 4px 12px 4px 0; text-align: left; font-size: 13px; }
  .bar { display: inline-block; height: 10px; background: #4a90d9; vertical-align: middle; }
  .badge { display: inline-block; margin-right: 12px; font-size: 13px; }
  .locked { color: #999; }
  .risks { margin: 0; padding-left: 16px; font-size: 13px; color: #444; }
</style>
</head>
<body>
<h1>Throttle behavior</h1>
<section>
  <h3>Rates (target {{.TargetPercent}}%)</h3>
  <table>
  {{range .Rates}}
    <tr><td>{{.Label}}</td><td>{{.Percent}}%</td><td><span class="bar" style="width: {{.Percent}}px"></span></td></tr>
  {{end}}
  </table>
</section>
<section>
  <h3>Events ({{.TotalEvents}} recorded)</h3>
  <table>
    <tr><th>Event</th><th>Last 7 days</th><th>Total</th></tr>
  {{range .Counts}}
    <tr><td>{{.Label}}</td><td>{{.Last7}}</td><td>{{.Total}}</td></tr>
  {{end}}
  </table>
</section>
<section>
  <h3>Badges</h3>
  {{range .Badges}}<span class="badge{{if not .Unlocked}} locked{{end}}">{{if .Unlocked}}&#9733;{{else}}&#9734;{{end}} {{.Label}}</span>{{end}}
</section>
<section>
  <h3>Risk notes</h3>
  <ul class="risks">
  {{range .Risks}}<li>{{.}}</li>{{end}}
  </ul>
</section>
</body>
</html>
`))
