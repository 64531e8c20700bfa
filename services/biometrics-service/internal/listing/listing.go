package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/appointments"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Filter struct {
	Status    string
	Location  appointments.Location
	From      string
	To        string
	Applicant string
}

type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize <= 0:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

type Result struct {
	Items      []appointments.Appointment `json:"items"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
	Fallback   bool                       `json:"fallback"`
}

// ParseQuery reads status, location, from, to, q, page and page_size.
func ParseQuery(q url.Values) (Filter, Pagination, error) {
	f := Filter{
		Status:    strings.ToLower(strings.TrimSpace(q.Get("status"))),
		From:      strings.TrimSpace(q.Get("from")),
		To:        strings.TrimSpace(q.Get("to")),
		Applicant: strings.TrimSpace(q.Get("q")),
	}
	if raw := q.Get("location"); strings.TrimSpace(raw) != "" {
		loc, err := appointments.ParseLocation(raw)
		if err != nil {
			return Filter{}, Pagination{}, err
		}
		f.Location = loc
	}
	for name, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return Filter{}, Pagination{}, fmt.Errorf("invalid %s date %q", name, v)
		}
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		return Filter{}, Pagination{}, fmt.Errorf("to must not be before from")
	}

	var p Pagination
	for name, dst := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Filter{}, Pagination{}, fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = n
	}
	return f, p.normalize(), nil
}

func (f Filter) match(a appointments.Appointment) bool {
	if f.Status != "" && !strings.EqualFold(a.Status, f.Status) {
		return false
	}
	if f.Location != "" && a.Location != f.Location {
		return false
	}
	// ISO dates compare correctly as strings.
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if f.Applicant != "" && !strings.Contains(strings.ToLower(a.Applicant), strings.ToLower(f.Applicant)) {
		return false
	}
	return true
}

// Apply filters list, orders it by date and time, and cuts out the requested page.
func Apply(list []appointments.Appointment, f Filter, p Pagination) Result {
	p = p.normalize()
	matched := make([]appointments.Appointment, 0, len(list))
	for _, a := range list {
		if f.match(a) {
			matched = append(matched, a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date < matched[j].Date
		}
		return matched[i].Time < matched[j].Time
	})

	total := len(matched)
	start := total
	if p.Page-1 <= total/p.PageSize {
		start = min((p.Page-1)*p.PageSize, total)
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return Result{
		Items:      matched[start:end],
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: (total + p.PageSize - 1) / p.PageSize,
	}
}

type Service struct {
	repo   appointments.Repository
	logger *slog.Logger
}

func NewService(repo appointments.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, f Filter, p Pagination) Result {
	list, fallback := appointments.ListWithFallback(ctx, s.repo, s.logger)
	res := Apply(list, f, p)
	res.Fallback = fallback
	return res
}
