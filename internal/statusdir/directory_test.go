package statusdir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

func TestMatchesExactSynonym(t *testing.T) {
	synonyms := []string{"ceo approved", "ceo approve"}
	cases := map[string]bool{
		"CEO Approved":       true,
		"  ceo approve  ":    true,
		"CEO APPROVED":       true,
		"CEO Approved (old)": false,
		"Pending CEO Approve": false,
		"":                   false,
	}
	for name, want := range cases {
		assert.Equal(t, want, MatchesExactSynonym(name, synonyms), name)
	}
}

func TestMatchesSubstringSynonym(t *testing.T) {
	synonyms := []string{"finance approve", "finance approved"}
	cases := map[string]bool{
		"Finance Approve":          true,
		"Finance Approved":         true,
		"Awaiting Finance Approval": false,
		"Pre Finance Approved Hold": true,
		"finance review":           false,
		"   ":                      false,
	}
	for name, want := range cases {
		assert.Equal(t, want, MatchesSubstringSynonym(name, synonyms), name)
	}
}

func TestDirectoryID(t *testing.T) {
	dir := New([]backend.Status{
		{ID: "s0", Name: "Draft"},
		{ID: "s1", Name: "CEO Approved"},
		{ID: "s2", Name: "ceo reject"},
		{ID: "s3", Name: "Finance Review"},
		{ID: "s4", Name: "Finance Approved"},
	})

	cases := []struct {
		kind Kind
		want backend.ID
	}{
		{CEOApproved, "s1"},
		{CEORejected, "s2"},
		{FinanceReview, "s3"},
		{FinanceApproved, "s4"},
	}
	for _, tc := range cases {
		id, ok := dir.ID(tc.kind)
		assert.True(t, ok, tc.kind.String())
		assert.Equal(t, tc.want, id, tc.kind.String())
	}
	assert.True(t, dir.Complete())
	assert.Equal(t, "Finance Review", dir.Name("s3"))
}

func TestDirectoryMissingStatusIsNotAnError(t *testing.T) {
	dir := New([]backend.Status{{ID: "s0", Name: "Draft"}})
	id, ok := dir.ID(CEOApproved)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.False(t, dir.Complete())

	var nilDir *Directory
	_, ok = nilDir.ID(FinanceReview)
	assert.False(t, ok)
}

func TestDirectoryFirstMatchWins(t *testing.T) {
	dir := New([]backend.Status{
		{ID: "a", Name: "Finance Review"},
		{ID: "b", Name: "Finance Review (legacy)"},
	})
	id, ok := dir.ID(FinanceReview)
	assert.True(t, ok)
	assert.Equal(t, backend.ID("a"), id)
}

func TestDirectoryMatches(t *testing.T) {
	resolved := New([]backend.Status{{ID: "s1", Name: "CEO Approved"}})
	assert.True(t, resolved.Matches(CEOApproved, "s1", ""))
	assert.False(t, resolved.Matches(CEOApproved, "s9", "CEO Approved"), "resolved kinds compare by id")
	assert.True(t, resolved.Matches(CEOApproved, "", "CEO Approved"), "deals without a status id match by name")
	assert.False(t, resolved.Matches(CEOApproved, "", "Submitted"))

	empty := New(nil)
	assert.True(t, empty.Matches(CEOApproved, "s1", "ceo approved"))
	assert.True(t, empty.Matches(CEORejected, "", " CEO Reject "))
	assert.False(t, empty.Matches(CEORejected, "", "Rejected by CEO"))
	assert.True(t, empty.Matches(FinanceApproved, "", "Finance Approved - pending docs"))
}
