// Package view derives filtered, sorted read-only views over a task
// collection and maps view criteria to and from URL query strings.
package view

import (
	"net/url"
	"slices"
	"strings"
)

// SortField is a sortable column.
type SortField string

const (
	SortProject     SortField = "Project"
	SortSummary     SortField = "Summary"
	SortTags        SortField = "Tags"
	SortAssignee    SortField = "Assignee"
	SortLastUpdated SortField = "Last Updated"
)

// SortFields lists the columns in display order.
var SortFields = []SortField{SortProject, SortSummary, SortTags, SortAssignee, SortLastUpdated}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// AssigneeFilter selects tasks by whether anyone owns them.
type AssigneeFilter string

const (
	AssigneeAny        AssigneeFilter = "Any"
	AssigneeUnassigned AssigneeFilter = "Unassigned"
	AssigneeAssigned   AssigneeFilter = "Assigned"
)

// AssigneeFilters lists the filters in display order.
var AssigneeFilters = []AssigneeFilter{AssigneeAny, AssigneeUnassigned, AssigneeAssigned}

// AllProjects is the project selector value meaning no project filter.
const AllProjects = "All"

const (
	paramSortBy        = "sortBy"
	paramSortDirection = "sortDirection"
	paramTag           = "tag"
	paramAssignee      = "assignee"
	paramProject       = "project"
)

// Criteria is the active filter and sort selection. Empty Tag and Project
// mean no filter.
type Criteria struct {
	SortBy        SortField      `json:"sortBy"`
	SortDirection Direction      `json:"sortDirection"`
	Tag           string         `json:"tag,omitempty"`
	Assignee      AssigneeFilter `json:"assignee"`
	Project       string         `json:"project,omitempty"`
}

// DefaultCriteria sorts newest first with no filters.
func DefaultCriteria() Criteria {
	return Criteria{
		SortBy:        SortLastUpdated,
		SortDirection: Desc,
		Assignee:      AssigneeAny,
	}
}

// Normalize replaces unknown values with defaults and folds the
// AllProjects sentinel into an empty project.
func (c Criteria) Normalize() Criteria {
	d := DefaultCriteria()
	if !validSortField(c.SortBy) {
		c.SortBy = d.SortBy
	}
	if c.SortDirection != Asc && c.SortDirection != Desc {
		c.SortDirection = d.SortDirection
	}
	if !validAssignee(c.Assignee) {
		c.Assignee = d.Assignee
	}
	if c.Project == AllProjects {
		c.Project = ""
	}
	return c
}

// Decode parses a query string, with or without the leading '?'. Missing
// or unrecognized values fall back to defaults; malformed input decodes
// to DefaultCriteria.
func Decode(raw string) Criteria {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return DefaultCriteria()
	}

	return Criteria{
		SortBy:        SortField(values.Get(paramSortBy)),
		SortDirection: Direction(values.Get(paramSortDirection)),
		Tag:           values.Get(paramTag),
		Assignee:      AssigneeFilter(values.Get(paramAssignee)),
		Project:       values.Get(paramProject),
	}.Normalize()
}

// Encode serializes c, omitting every field equal to its default.
func Encode(c Criteria) string {
	c = c.Normalize()
	d := DefaultCriteria()

	values := url.Values{}
	if c.SortBy != d.SortBy {
		values.Set(paramSortBy, string(c.SortBy))
	}
	if c.SortDirection != d.SortDirection {
		values.Set(paramSortDirection, string(c.SortDirection))
	}
	if c.Tag != "" {
		values.Set(paramTag, c.Tag)
	}
	if c.Assignee != d.Assignee {
		values.Set(paramAssignee, string(c.Assignee))
	}
	if c.Project != "" {
		values.Set(paramProject, c.Project)
	}
	return values.Encode()
}

// ToggleSort applies a column header click. Tags is not sortable from the
// header. Clicking the active column flips direction; a new column starts
// descending.
func (c Criteria) ToggleSort(field SortField) Criteria {
	if field == SortTags || !validSortField(field) {
		return c
	}
	if c.SortBy == field {
		if c.SortDirection == Desc {
			c.SortDirection = Asc
		} else {
			c.SortDirection = Desc
		}
		return c
	}
	c.SortBy = field
	c.SortDirection = Desc
	return c
}

// ToggleTag selects tag, or clears the filter when tag is already selected.
func (c Criteria) ToggleTag(tag string) Criteria {
	if c.Tag == tag {
		c.Tag = ""
	} else {
		c.Tag = tag
	}
	return c
}

// NextAssignee cycles the assignee filter in display order.
func (c Criteria) NextAssignee() Criteria {
	i := slices.Index(AssigneeFilters, c.Assignee)
	c.Assignee = AssigneeFilters[(i+1)%len(AssigneeFilters)]
	return c
}

func validSortField(f SortField) bool { return slices.Contains(SortFields, f) }

func validAssignee(a AssigneeFilter) bool { return slices.Contains(AssigneeFilters, a) }
