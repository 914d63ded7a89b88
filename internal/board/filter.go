package board

import (
	"sort"
	"strings"
	"time"

	"github.com/stitchboard/stitchboard/pkg/models"
)

// Sentinel value disabling the status and tag filters.
const FilterAll = "all"

// Date filter modes.
const (
	DateAll    = "all"
	DateToday  = "today"
	DateWeek   = "week"
	DateMonth  = "month"
	DateCustom = "custom"
)

const dayFormat = "2006-01-02"

// Criteria is one filter configuration. Zero values and the "all"
// sentinels disable the corresponding dimension; active dimensions are
// combined with logical AND.
type Criteria struct {
	Search   string
	Status   string
	Tag      string
	DateType string
	Date     string
}

// DefaultCriteria matches every order.
func DefaultCriteria() Criteria {
	return Criteria{
		Search:   "",
		Status:   FilterAll,
		Tag:      FilterAll,
		DateType: DateAll,
		Date:     "",
	}
}

// Apply returns the orders matching c, evaluated against now. It never
// mutates orders and preserves their relative order; callers sort the
// base collection before filtering.
func Apply(orders []models.Order, c Criteria, now time.Time) []models.Order {
	matched := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if matches(o, c, now) {
			matched = append(matched, o)
		}
	}
	return matched
}

func matches(o models.Order, c Criteria, now time.Time) bool {
	if !matchesSearch(o, c.Search) {
		return false
	}
	if c.Status != "" && c.Status != FilterAll && o.Status != c.Status {
		return false
	}
	if !matchesTag(o, c.Tag) {
		return false
	}
	return matchesDate(o, c, now)
}

func matchesSearch(o models.Order, search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(o.OrderID), q) ||
		strings.Contains(strings.ToLower(o.CustomerName), q) ||
		(o.CustomerPhone != "" && strings.Contains(strings.ToLower(o.CustomerPhone), q))
}

func matchesTag(o models.Order, tag string) bool {
	if tag == "" || tag == FilterAll {
		return true
	}
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func matchesDate(o models.Order, c Criteria, now time.Time) bool {
	switch c.DateType {
	case "", DateAll:
		return true
	case DateToday:
		return o.DeliveryDate == now.Format(dayFormat)
	case DateWeek:
		if o.DeliveryDate == "" {
			return false
		}
		// Week runs Sunday through Saturday, both ends inclusive.
		// Calendar-day strings compare correctly lexicographically.
		start := now.AddDate(0, 0, -int(now.Weekday()))
		end := start.AddDate(0, 0, 6)
		return o.DeliveryDate >= start.Format(dayFormat) &&
			o.DeliveryDate <= end.Format(dayFormat)
	case DateMonth:
		if o.DeliveryDate == "" {
			return false
		}
		return strings.HasPrefix(o.DeliveryDate, now.Format("2006-01")+"-")
	case DateCustom:
		if c.Date == "" {
			return true
		}
		return o.DeliveryDate == c.Date
	default:
		return true
	}
}

// AvailableTags returns the sorted set of distinct tags across orders.
func AvailableTags(orders []models.Order) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, o := range orders {
		for _, t := range o.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}
