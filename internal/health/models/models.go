// Package models holds audit findings, reports and analyzer configuration.
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	id "github.com/vrwarp/locus/pkg/domain"
)

// Tag identifies an analyzer, or a finding category an analyzer emits.
type Tag string

const (
	TagFamilyOrder  Tag = "family_order"
	TagFamilyGap    Tag = "family_gap"
	TagGhost        Tag = "ghost"
	TagBusFactor    Tag = "bus_factor"
	TagStaffingGap  Tag = "staffing_gap"
	TagVelocity     Tag = "velocity"
	TagVolunteerWeb Tag = "volunteer_web"
	TagRecruitment  Tag = "recruitment"
	TagContact      Tag = "contact"
)

// AnalyzerTags lists every runnable analyzer. staffing_gap and family_gap are
// finding categories of other analyzers, see DerivedTags.
func AnalyzerTags() []Tag {
	return []Tag{
		TagFamilyOrder,
		TagGhost,
		TagBusFactor,
		TagVelocity,
		TagVolunteerWeb,
		TagRecruitment,
		TagContact,
	}
}

// DerivedTags lists finding categories emitted alongside an analyzer's own tag.
func DerivedTags() []Tag {
	return []Tag{TagFamilyGap, TagStaffingGap}
}

func (t Tag) IsAnalyzer() bool {
	return slices.Contains(AnalyzerTags(), t)
}

// ParseTags validates analyzer names. Empty input selects every analyzer;
// duplicates collapse.
func ParseTags(names []string) ([]Tag, error) {
	if len(names) == 0 {
		return AnalyzerTags(), nil
	}
	var tags []Tag
	for _, n := range names {
		t := Tag(strings.TrimSpace(strings.ToLower(n)))
		if !t.IsAnalyzer() {
			return nil, fmt.Errorf("unknown analyzer %q", n)
		}
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityWarning       Severity = "warning"
)

// Finding is one anomaly. Subjects are person ids; team-level findings carry
// the team in Values["team_id"].
type Finding struct {
	Tag          Tag               `json:"tag"`
	Severity     Severity          `json:"severity"`
	Title        string            `json:"title"`
	Subjects     []string          `json:"subjects"`
	Explanation  string            `json:"explanation"`
	Values       map[string]string `json:"values,omitempty"`
	CheckInCount *int              `json:"check_in_count,omitempty"`
	Suggestion   *string           `json:"suggestion,omitempty"`
}

// PersonID returns the primary subject, or "" for subject-less findings.
func (f Finding) PersonID() string {
	if len(f.Subjects) == 0 {
		return ""
	}
	return f.Subjects[0]
}

func (f Finding) Value(key string) string {
	return f.Values[key]
}

// WithCheckInCount returns a confirmed copy of f.
func (f Finding) WithCheckInCount(n int) Finding {
	f.CheckInCount = &n
	return f
}

// VelocityPoint is one bucket of the check-in time series.
type VelocityPoint struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
	Delta       int       `json:"delta"`
}

type GraphNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PrimaryTeam string   `json:"primary_team"`
	Teams       []string `json:"teams"`
	Degree      int      `json:"degree"`
}

// GraphEdge joins two co-serving people; Source < Target.
type GraphEdge struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Weight      int      `json:"weight"`
	SharedTeams []string `json:"shared_teams"`
}

type VolunteerGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Candidate is a ranked recruitment suggestion.
type Candidate struct {
	PersonID         string   `json:"person_id"`
	Name             string   `json:"name"`
	Score            float64  `json:"score"`
	Signals          []string `json:"signals"`
	RecommendedTeams []string `json:"recommended_teams"`
	Outreach         string   `json:"outreach"`
}

// Result is the output of a single analyzer run.
type Result struct {
	Findings   []Finding
	Velocity   []VelocityPoint
	Graph      *VolunteerGraph
	Candidates []Candidate
}

// Report aggregates analyzer results for one roster snapshot.
type Report struct {
	ID           id.ReportID       `json:"id"`
	GeneratedAt  time.Time         `json:"generated_at"`
	TotalScanned int               `json:"total_scanned"`
	Requested    []Tag             `json:"requested"`
	Completed    []Tag             `json:"completed"`
	Findings     map[Tag][]Finding `json:"findings"`
	Velocity     []VelocityPoint   `json:"velocity,omitempty"`
	Graph        *VolunteerGraph   `json:"graph,omitempty"`
	Candidates   []Candidate       `json:"candidates,omitempty"`
	Errors       map[Tag]string    `json:"errors,omitempty"`
}

func NewReport(reportID id.ReportID, generatedAt time.Time, scanned int, requested []Tag) *Report {
	return &Report{
		ID:           reportID,
		GeneratedAt:  generatedAt,
		TotalScanned: scanned,
		Requested:    requested,
		Findings:     make(map[Tag][]Finding),
		Errors:       make(map[Tag]string),
	}
}

// Attach merges an analyzer result. Findings are grouped under their own tag
// so one analyzer may fill several categories.
func (r *Report) Attach(tag Tag, res Result) {
	for _, f := range res.Findings {
		r.Findings[f.Tag] = append(r.Findings[f.Tag], f)
	}
	if res.Velocity != nil {
		r.Velocity = res.Velocity
	}
	if res.Graph != nil {
		r.Graph = res.Graph
	}
	if res.Candidates != nil {
		r.Candidates = res.Candidates
	}
	r.Completed = append(r.Completed, tag)
	slices.Sort(r.Completed)
}

func (r *Report) Fail(tag Tag, err error) {
	r.Errors[tag] = err.Error()
}

func (r *Report) FindingCount() int {
	n := 0
	for _, fs := range r.Findings {
		n += len(fs)
	}
	return n
}

// Partial reports whether some requested analyzer did not complete.
func (r *Report) Partial() bool {
	return len(r.Completed) < len(r.Requested)
}
