// Package statusdir resolves well-known deal statuses from the backend-owned status directory.
package statusdir

import (
	"strings"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

// Kind enumerates the statuses the dashboards need to recognise.
type Kind int

const (
	CEOApproved Kind = iota
	CEORejected
	FinanceReview
	FinanceApproved
)

// Kinds lists every well-known kind.
var Kinds = []Kind{CEOApproved, CEORejected, FinanceReview, FinanceApproved}

func (k Kind) String() string {
	switch k {
	case CEOApproved:
		return "ceo_approved"
	case CEORejected:
		return "ceo_rejected"
	case FinanceReview:
		return "finance_review"
	case FinanceApproved:
		return "finance_approved"
	default:
		return "unknown"
	}
}

// Matcher tests a status name against a synonym set.
type Matcher func(name string, synonyms []string) bool

type rule struct {
	synonyms []string
	match    Matcher
}

// CEO statuses match exactly; finance statuses match by containment.
var rules = map[Kind]rule{
	CEOApproved:     {synonyms: []string{"ceo approved", "ceo approve"}, match: MatchesExactSynonym},
	CEORejected:     {synonyms: []string{"ceo rejected", "ceo reject"}, match: MatchesExactSynonym},
	FinanceReview:   {synonyms: []string{"finance review"}, match: MatchesSubstringSynonym},
	FinanceApproved: {synonyms: []string{"finance approve", "finance approved"}, match: MatchesSubstringSynonym},
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MatchesExactSynonym reports whether the trimmed, lower-cased name equals one of the synonyms.
func MatchesExactSynonym(name string, synonyms []string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}
	for _, s := range synonyms {
		if n == s {
			return true
		}
	}
	return false
}

// MatchesSubstringSynonym reports whether the trimmed, lower-cased name contains one of the synonyms.
func MatchesSubstringSynonym(name string, synonyms []string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}
	for _, s := range synonyms {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// MatchesName applies the kind's matching rule to a status name.
func MatchesName(kind Kind, name string) bool {
	r, ok := rules[kind]
	if !ok {
		return false
	}
	return r.match(name, r.synonyms)
}

// Directory is a snapshot of the backend status list.
type Directory struct {
	Statuses []backend.Status `json:"statuses"`
}

// New wraps a fetched status list.
func New(statuses []backend.Status) *Directory {
	return &Directory{Statuses: statuses}
}

// ID returns the id of the first status matching kind. A missing status is not an error:
// the backend may simply not be configured yet.
func (d *Directory) ID(kind Kind) (backend.ID, bool) {
	if d == nil {
		return "", false
	}
	for _, st := range d.Statuses {
		if st.ID != "" && MatchesName(kind, st.Name) {
			return st.ID, true
		}
	}
	return "", false
}

// Complete reports whether every well-known kind resolves.
func (d *Directory) Complete() bool {
	for _, k := range Kinds {
		if _, ok := d.ID(k); !ok {
			return false
		}
	}
	return true
}

// Name returns the directory name of a status id.
func (d *Directory) Name(id backend.ID) string {
	if d == nil || id == "" {
		return ""
	}
	for _, st := range d.Statuses {
		if st.ID == id {
			return st.Name
		}
	}
	return ""
}

// Matches reports whether a deal status is of the given kind. When both the kind and the deal
// carry an id the comparison is by id; otherwise the kind's name rule is applied to statusName.
func (d *Directory) Matches(kind Kind, statusID backend.ID, statusName string) bool {
	if id, ok := d.ID(kind); ok && statusID != "" {
		return statusID == id
	}
	return MatchesName(kind, statusName)
}
